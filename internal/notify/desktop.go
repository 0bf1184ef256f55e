package notify

import "os/exec"

// Desktop shows a transient desktop notification. Environments without
// notify-send just skip it.
func Desktop(summary string) {
	if _, err := exec.LookPath("notify-send"); err != nil {
		return
	}
	_ = exec.Command("notify-send", "-t", "2000", "Willow", summary).Run()
}
