package main

import (
	"fmt"
	"os"

	"github.com/gmofishsauce/cpcasm/basic"
)

func runBasicEncode(inputFile, output string) error {
	src, err := os.ReadFile(inputFile)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inputFile, err)
	}
	prog, err := basic.Tokenize(string(src))
	if err != nil {
		return err
	}
	outPath := output
	if outPath == "" {
		outPath = replaceExt(inputFile, ".bas.tok")
	}
	return os.WriteFile(outPath, prog.ToBytes(), 0644)
}

func runBasicDecode(inputFile, output string) error {
	data, err := os.ReadFile(inputFile)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inputFile, err)
	}
	prog, err := basic.Detokenize(data)
	if err != nil {
		return err
	}
	text, err := prog.Source()
	if err != nil {
		return err
	}
	outPath := output
	if outPath == "" {
		outPath = replaceExt(inputFile, ".bas")
	}
	return os.WriteFile(outPath, []byte(text), 0644)
}
