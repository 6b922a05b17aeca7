// Package iocli is the terminal seam of the CLI: output, prompts and hidden password input.
package iocli

//go:generate moq -out io_mock.go . IO

// IO is what commands use instead of touching os.Stdin/os.Stdout directly
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
	Write(p []byte) (n int, err error)
}
