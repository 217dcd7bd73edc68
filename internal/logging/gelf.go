package logging

import (
	"fmt"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGraylogWriter dials a GELF UDP endpoint. Each write becomes one message.
func NewGraylogWriter(address string, facility string) (*gelf.Writer, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, fmt.Errorf("connect to graylog at %s: %w", address, err)
	}
	w.Facility = facility
	return w, nil
}
