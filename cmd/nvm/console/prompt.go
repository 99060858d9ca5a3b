package console

import (
	"fmt"
	"strings"

	"github.com/chzyer/readline"
)

const (
	Yes = "y"
	No  = "n"
)

// YesOrNo asks for confirmation before a flash operation. Erases and bank
// swaps are not recoverable, so an empty answer counts as no.
func YesOrNo(question string) (string, error) {
	return Prompt(question, No, Yes)
}

// Prompt reads a line from the terminal. With constraints the first one is the
// default and anything that matches none of them falls back to it.
func Prompt(question string, constraints ...string) (string, error) {
	if len(constraints) == 0 {
		rl, err := readline.New(question)
		if err != nil {
			return "", err
		}
		return rl.Readline()
	}
	prompt := fmt.Sprintf("%s [%s", question, strings.ToUpper(constraints[0]))
	for _, c := range constraints[1:] {
		prompt += "/" + c
	}
	rl, err := readline.New(prompt + "]:")
	if err != nil {
		return "", err
	}
	response, err := rl.Readline()
	if err != nil {
		return "", err
	}
	normalized := strings.ToLower(strings.TrimSpace(response))
	for _, c := range constraints {
		if normalized == c {
			return normalized, nil
		}
	}
	return constraints[0], nil
}
