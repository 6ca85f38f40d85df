package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch command := os.Args[1]; command {
	case "train":
		err = runTrain(os.Args[2:])
	case "translate":
		err = runTranslate(os.Args[2:])
	case "demo":
		err = runDemo(os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "tinynmt %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("tinynmt - attention encoder/decoder translation trainer")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  tinynmt train --config FILE [options]")
	fmt.Println("  tinynmt translate --model DIR")
	fmt.Println("  tinynmt demo [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  train      Train a model on a tab separated parallel corpus")
	fmt.Println("  translate  Translate stdin lines with a trained model")
	fmt.Println("  demo       Train on a built-in two sentence toy set")
}
