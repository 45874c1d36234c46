// Package structure reads per-atom type ids and coordinates from structure
// files. Only the information needed for rasterization is extracted; bonds,
// charges and residue data are ignored.
package structure

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"path"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/turtacn/molgrid/internal/domain/atomtype"
	"github.com/turtacn/molgrid/pkg/errors"
	mtypes "github.com/turtacn/molgrid/pkg/types/molecule"
)

// Supported formats, keyed by file extension.
const (
	FormatGninatypes = ".gninatypes"
	FormatPDBQT      = ".pdbqt"
	FormatPDB        = ".pdb"
)

// gninatypesRecord is the on-disk size of one atom: float32 x, y, z and an
// int32 type id, little endian.
const gninatypesRecord = 16

// Decode picks a decoder from name's extension. A trailing ".gz" is
// decompressed first.
func Decode(name string, r io.Reader) ([]mtypes.AtomRecord, error) {
	ext := strings.ToLower(path.Ext(name))
	if ext == ".gz" {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStructureMalformed, "open gzip stream").WithDetail(name)
		}
		defer zr.Close()
		r = zr
		ext = strings.ToLower(path.Ext(strings.TrimSuffix(name, path.Ext(name))))
	}

	var (
		recs []mtypes.AtomRecord
		err  error
	)
	switch ext {
	case FormatGninatypes:
		recs, err = DecodeGninatypes(r)
	case FormatPDBQT:
		recs, err = DecodePDBQT(r)
	case FormatPDB:
		recs, err = DecodePDB(r)
	default:
		return nil, errors.New(errors.ErrCodeUnsupportedFormat, "unsupported structure format").WithDetail(name)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "decode "+name)
	}
	return recs, nil
}

// DecodeGninatypes reads the binary gninatypes format.
func DecodeGninatypes(r io.Reader) ([]mtypes.AtomRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStructureUnreadable, "read gninatypes")
	}
	if len(data)%gninatypesRecord != 0 {
		return nil, errors.New(errors.ErrCodeStructureMalformed, "truncated gninatypes record").
			WithDetailf("%d bytes", len(data))
	}
	out := make([]mtypes.AtomRecord, len(data)/gninatypesRecord)
	le := binary.LittleEndian
	for i := range out {
		b := data[i*gninatypesRecord:]
		out[i] = mtypes.AtomRecord{
			Coords: mtypes.Vec3{
				math.Float32frombits(le.Uint32(b[0:])),
				math.Float32frombits(le.Uint32(b[4:])),
				math.Float32frombits(le.Uint32(b[8:])),
			},
			TypeID: int(int32(le.Uint32(b[12:]))),
		}
	}
	return out, nil
}

// EncodeGninatypes writes records in the binary gninatypes format.
func EncodeGninatypes(w io.Writer, recs []mtypes.AtomRecord) error {
	buf := make([]byte, gninatypesRecord)
	le := binary.LittleEndian
	for _, rec := range recs {
		le.PutUint32(buf[0:], math.Float32bits(rec.Coords[0]))
		le.PutUint32(buf[4:], math.Float32bits(rec.Coords[1]))
		le.PutUint32(buf[8:], math.Float32bits(rec.Coords[2]))
		le.PutUint32(buf[12:], uint32(int32(rec.TypeID)))
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// DecodePDBQT reads ATOM/HETATM records and types them by the AutoDock type
// in the last column. Unknown AutoDock types are skipped.
func DecodePDBQT(r io.Reader) ([]mtypes.AtomRecord, error) {
	return decodeText(r, func(line string) (atomtype.AtomType, bool) {
		var ad string
		if len(line) > 77 {
			ad = strings.TrimSpace(line[77:])
		}
		if ad == "" {
			fields := strings.Fields(line)
			ad = fields[len(fields)-1]
		}
		return atomtype.FromAutoDock(ad)
	})
}

// DecodePDB reads ATOM/HETATM records and types them by element symbol,
// falling back to the atom name when the element columns are blank.
func DecodePDB(r io.Reader) ([]mtypes.AtomRecord, error) {
	return decodeText(r, func(line string) (atomtype.AtomType, bool) {
		var el string
		if len(line) >= 78 {
			el = strings.TrimSpace(line[76:78])
		}
		if el == "" && len(line) >= 16 {
			el = strings.TrimLeft(strings.TrimSpace(line[12:16]), "0123456789")
			if len(el) > 1 {
				el = el[:1]
			}
		}
		return atomtype.FromElement(el)
	})
}

func decodeText(r io.Reader, typeOf func(line string) (atomtype.AtomType, bool)) ([]mtypes.AtomRecord, error) {
	var out []mtypes.AtomRecord
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := sc.Text()
		if !strings.HasPrefix(line, "ATOM") && !strings.HasPrefix(line, "HETATM") {
			continue
		}
		if len(line) < 54 {
			return nil, errors.New(errors.ErrCodeStructureMalformed, "short coordinate record").WithDetailf("line %d", n)
		}
		var c mtypes.Vec3
		for d, span := range [3][2]int{{30, 38}, {38, 46}, {46, 54}} {
			v, err := strconv.ParseFloat(strings.TrimSpace(line[span[0]:span[1]]), 32)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeStructureMalformed, "bad coordinate").WithDetailf("line %d", n)
			}
			c[d] = float32(v)
		}
		t, ok := typeOf(line)
		if !ok {
			continue
		}
		out = append(out, mtypes.AtomRecord{TypeID: int(t), Coords: c})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStructureUnreadable, "read structure")
	}
	return out, nil
}

//Personal.AI order the ending
