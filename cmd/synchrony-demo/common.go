package main

import (
	"io"
	"os"

	"github.com/riftbio/synchrony"
	"github.com/riftbio/synchrony/iter"
	"github.com/riftbio/synchrony/record"
)

// writeBED drains it into path using settings.Serializer, writing the
// first record with WriteHeader and every subsequent one with WriteRow.
func writeBED(path string, settings synchrony.Settings[record.Record], it iter.Iterator[record.Record]) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	first := true
	for {
		v, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if first {
			err = settings.Serializer.WriteHeader(f, v)
			first = false
		} else {
			err = settings.Serializer.WriteRow(f, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
