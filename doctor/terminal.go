package doctor

import "os/exec"

// resetTerminal undoes raw mode left behind by keyboard tools.
func resetTerminal() {
	exec.Command("stty", "sane").Run()
}
