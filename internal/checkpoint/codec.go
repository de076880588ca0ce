package checkpoint

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

type Format int

const (
	JSON Format = iota
	Msgpack
)

func (f Format) String() string {
	if f == Msgpack {
		return "msgpack"
	}
	return "json"
}

// FormatFor picks the format from the file extension; anything other than
// .msgpack or .mpk is JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".msgpack", ".mpk":
		return Msgpack
	default:
		return JSON
	}
}

func Encode(w io.Writer, c *Checkpoint, f Format) error {
	if f == Msgpack {
		return msgpack.NewEncoder(w).Encode(c)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

func Decode(r io.Reader, f Format) (*Checkpoint, error) {
	var c Checkpoint
	var err error
	if f == Msgpack {
		err = msgpack.NewDecoder(r).Decode(&c)
	} else {
		err = json.NewDecoder(r).Decode(&c)
	}
	if err != nil {
		return nil, fmt.Errorf("checkpoint: decode %s: %w", f, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Save writes c to path atomically, in the format implied by the extension.
func Save(path string, c *Checkpoint) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".checkpoint-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, c, FormatFor(path)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func Load(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, FormatFor(path))
}
