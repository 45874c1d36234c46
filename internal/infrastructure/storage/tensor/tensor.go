// Package tensor writes batches as NumPy .npy files, locally or through any
// Sink, so generated grids can be loaded with numpy.load.
package tensor

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"slices"

	"github.com/sbinet/npyio"

	"github.com/turtacn/molgrid/pkg/errors"
)

// ContentType is the media type used when uploading .npy files.
const ContentType = "application/octet-stream"

// Write encodes data as a little-endian float32 array with the given shape.
func Write(w io.Writer, shape []int, data []float32) error {
	if n := numel(shape); n != len(data) {
		return errors.New(errors.ErrCodeGridBufferSize, "tensor shape does not match data").
			WithDetailf("shape %v holds %d values, got %d", shape, n, len(data))
	}
	if len(shape) == 0 || slices.Contains(shape, 0) {
		return errors.New(errors.ErrCodeGridBufferSize, "tensor shape must have positive dimensions").
			WithDetailf("shape %v", shape)
	}
	if err := npyio.Write(w, shaped(shape, data).Interface()); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "npy write")
	}
	return nil
}

// shaped copies data into a fixed-size array of type [d0][d1]...float32 so the
// npy writer derives the full shape from the value.
func shaped(shape []int, data []float32) reflect.Value {
	t := reflect.TypeOf(float32(0))
	for i := len(shape) - 1; i >= 0; i-- {
		t = reflect.ArrayOf(shape[i], t)
	}
	v := reflect.New(t).Elem()
	fill(v, data)
	return v
}

func fill(v reflect.Value, data []float32) int {
	if v.Type().Elem().Kind() == reflect.Float32 {
		return reflect.Copy(v, reflect.ValueOf(data))
	}
	off := 0
	for i := 0; i < v.Len(); i++ {
		off += fill(v.Index(i), data[off:])
	}
	return off
}

// Encode is Write into a fresh buffer.
func Encode(shape []int, data []float32) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, shape, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Read decodes a float32 .npy stream.
func Read(r io.Reader) ([]int, []float32, error) {
	nr, err := npyio.NewReader(r)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeSerialization, "npy header")
	}
	var data []float32
	if err := nr.Read(&data); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeSerialization, "npy read")
	}
	return nr.Header.Descr.Shape, data, nil
}

func numel(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Sink stores named artifacts.
type Sink interface {
	Put(ctx context.Context, name, contentType string, data []byte) error
	Describe() string
}

// DirSink writes artifacts into a local directory, creating it on demand.
type DirSink struct {
	dir string
}

func NewDirSink(dir string) *DirSink { return &DirSink{dir: dir} }

func (s *DirSink) Put(_ context.Context, name, _ string, data []byte) error {
	p := filepath.Join(s.dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "create output directory").WithDetail(filepath.Dir(p))
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "write file").WithDetail(p)
	}
	return nil
}

func (s *DirSink) Describe() string { return s.dir }

//Personal.AI order the ending
