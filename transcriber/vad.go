package transcriber

import (
	webrtcvad "github.com/maxhawkins/go-webrtcvad"

	"voxd/audio"
)

// VADMode 3 is the most aggressive WebRTC setting.
const VADMode = 3

type webrtcClassifier struct {
	vad *webrtcvad.VAD
}

func NewWebRTCClassifier(mode int) (Classifier, error) {
	v, err := webrtcvad.New()
	if err != nil {
		return nil, err
	}
	if err := v.SetMode(mode); err != nil {
		return nil, err
	}
	return &webrtcClassifier{vad: v}, nil
}

func (c *webrtcClassifier) Speech(frame []byte) (bool, error) {
	return c.vad.Process(audio.SampleRate, frame)
}
