package pathsindex

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// nodeRow is one line of the nodes file.
//
// Example: "12\t32"
type nodeRow struct {
	NodeID int64
	Length int64
}

// pathRow is one line of the paths file. Steps is a comma separated list of
// oriented node ids.
//
// Example: "ENST00000279783.3\t1+,2+,4-"
type pathRow struct {
	Name  string
	Steps string
}

// ParseSteps parses a comma separated list of oriented node ids, e.g.
// "1+,2+,4-".
func ParseSteps(s string) ([]Handle, error) {
	fields := strings.Split(s, ",")
	steps := make([]Handle, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			return nil, errors.Errorf("invalid step '%s'", f)
		}
		var reverse bool
		switch f[len(f)-1] {
		case '+':
		case '-':
			reverse = true
		default:
			return nil, errors.Errorf("step '%s' lacks an orientation", f)
		}
		id, err := strconv.ParseUint(f[:len(f)-1], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "step '%s'", f)
		}
		steps = append(steps, NewHandle(id, reverse))
	}
	return steps, nil
}

// openTSV opens a possibly gzipped TSV file. The returned closer must be
// called once reading is done.
func openTSV(ctx context.Context, path string) (*tsv.Reader, func() error, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open %s", path)
	}
	r := io.Reader(in.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		if r, err = gzip.NewReader(r); err != nil {
			_ = in.Close(ctx)
			return nil, nil, errors.Wrapf(err, "gunzip %s", path)
		}
	}
	tr := tsv.NewReader(r)
	tr.Comment = '#'
	return tr, func() error { return in.Close(ctx) }, nil
}

// LoadTSV builds a MemIndex from a nodes file ("node_id<TAB>length" per line)
// and a paths file ("name<TAB>steps" per line). Lines starting with '#' are
// ignored, and files ending in .gz are decompressed.
func LoadTSV(ctx context.Context, nodesPath, pathsPath string) (idx *MemIndex, err error) {
	idx = NewMemIndex()

	r, closer, err := openTSV(ctx, nodesPath)
	if err != nil {
		return nil, err
	}
	for line := 1; ; line++ {
		var row nodeRow
		if err = r.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			_ = closer()
			return nil, errors.Wrapf(err, "%s:%d", nodesPath, line)
		}
		if row.NodeID <= 0 || row.Length <= 0 {
			_ = closer()
			return nil, errors.Errorf("%s:%d: invalid node %+v", nodesPath, line, row)
		}
		if err = idx.AddNode(uint64(row.NodeID), uint32(row.Length)); err != nil {
			_ = closer()
			return nil, errors.Wrapf(err, "%s:%d", nodesPath, line)
		}
	}
	if err = closer(); err != nil {
		return nil, errors.Wrapf(err, "close %s", nodesPath)
	}

	if r, closer, err = openTSV(ctx, pathsPath); err != nil {
		return nil, err
	}
	for line := 1; ; line++ {
		var row pathRow
		if err = r.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			_ = closer()
			return nil, errors.Wrapf(err, "%s:%d", pathsPath, line)
		}
		steps, err := ParseSteps(row.Steps)
		if err != nil {
			_ = closer()
			return nil, errors.Wrapf(err, "%s:%d", pathsPath, line)
		}
		if _, err = idx.AddPath(row.Name, steps); err != nil {
			_ = closer()
			return nil, errors.Wrapf(err, "%s:%d", pathsPath, line)
		}
	}
	if err = closer(); err != nil {
		return nil, errors.Wrapf(err, "close %s", pathsPath)
	}
	log.Printf("Loaded %d nodes and %d paths from %s, %s", len(idx.nodeLengths), idx.NumPaths(), nodesPath, pathsPath)
	return idx, nil
}
