//go:build !darwin

package main

import "errors"

func metalImport(string) error {
	return errors.New("go-metal requires macOS")
}
