package audio

import "errors"

var ErrNoDevice = errors.New("no capture devices found")
