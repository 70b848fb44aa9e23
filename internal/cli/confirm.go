package cli

import (
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// confirm asks a yes/no question when stdin is a terminal. Scripts and pipes
// are never prompted.
func confirm(streams *IOStreams, title string) (bool, error) {
	f, ok := streams.In.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return true, nil
	}

	var answer bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Delete").
		Negative("Keep").
		Value(&answer).
		Run()
	if err != nil {
		return false, err
	}
	return answer, nil
}
