package utils

import (
	"flag"
	"os"
)

// PrintStr avoids fmt.Print's boxing when all we have is one string.
func PrintStr(str string) {
	os.Stdout.WriteString(str)
}

func IsFlagGiven(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
