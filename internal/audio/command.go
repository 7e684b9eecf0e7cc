package audio

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// CommandPlayer speaks by running an external program, such as say on
// macOS or espeak on Linux.
type CommandPlayer struct {
	Name string
	Args func(text string) []string
}

// NewSystemPlayer picks the speech program for the current OS
func NewSystemPlayer(voice string) (*CommandPlayer, error) {
	switch runtime.GOOS {
	case "darwin":
		return &CommandPlayer{Name: "say", Args: func(text string) []string {
			if voice != "" {
				return []string{"-v", voice, text}
			}
			return []string{text}
		}}, nil
	case "windows":
		return &CommandPlayer{Name: "powershell", Args: func(text string) []string {
			script := "Add-Type -AssemblyName System.Speech; " +
				"$s = New-Object System.Speech.Synthesis.SpeechSynthesizer; "
			if voice != "" {
				script += "$s.SelectVoice('" + psQuote(voice) + "'); "
			}
			script += "$s.Speak('" + psQuote(text) + "')"
			return []string{"-NoProfile", "-Command", script}
		}}, nil
	default:
		name, err := firstInPath("espeak-ng", "espeak")
		if err != nil {
			return nil, err
		}
		if voice == "" {
			voice = "cmn"
		}
		return &CommandPlayer{Name: name, Args: func(text string) []string {
			return []string{"-v", voice, text}
		}}, nil
	}
}

func (p *CommandPlayer) Play(ctx context.Context, text string) error {
	var args []string
	if p.Args != nil {
		args = p.Args(text)
	} else {
		args = []string{text}
	}
	cmd := exec.CommandContext(ctx, p.Name, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s failed: %w: %s", p.Name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func firstInPath(names ...string) (string, error) {
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no speech program found (tried %s)", strings.Join(names, ", "))
}

func psQuote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
