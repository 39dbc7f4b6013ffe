// Package login manages the XDG autostart entry that launches the daemon
// at session start.
package login

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const fileName = "voxd.desktop"

// Env lists the variables copied into the autostart entry so the daemon
// starts with the same session settings.
var Env = []string{"VOICE_MODEL", "VOICE_LANGUAGE", "VOICE_WORD_BY_WORD", "VOICE_LOG_PATH"}

func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "autostart", fileName)
}

func Enabled() bool {
	_, err := os.Stat(Path())
	return err == nil
}

func Enable() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create autostart dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(Entry(exe, os.Getenv)), 0o644); err != nil {
		return fmt.Errorf("write autostart entry: %w", err)
	}
	return nil
}

func Disable() error {
	if err := os.Remove(Path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove autostart entry: %w", err)
	}
	return nil
}

// Entry renders the desktop file for exe, prefixing the command with env
// assignments for every non-empty variable in Env.
func Entry(exe string, getenv func(string) string) string {
	var args []string
	for _, key := range Env {
		if v := getenv(key); v != "" {
			args = append(args, key+"="+v)
		}
	}
	if len(args) > 0 {
		args = append([]string{"env"}, args...)
	}
	args = append(args, exe, "daemon")

	for i, a := range args {
		args[i] = quote(a)
	}

	var b strings.Builder
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	b.WriteString("Name=Voice Dictation\n")
	b.WriteString("Comment=Speech to text at the cursor\n")
	fmt.Fprintf(&b, "Exec=%s\n", strings.Join(args, " "))
	b.WriteString("Terminal=false\n")
	b.WriteString("X-GNOME-Autostart-enabled=true\n")
	return b.String()
}

// quote follows the desktop entry Exec rules: arguments with reserved
// characters are double-quoted with ", `, $ and \ escaped.
func quote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n\"'\\><~|&;$*?#()`") {
		return s
	}
	r := strings.NewReplacer(`\`, `\\\\`, `"`, `\\"`, "`", "\\\\`", `$`, `\\$`)
	return `"` + r.Replace(s) + `"`
}
