// Package bundle moves ledger snapshots between CAS backends as a
// deterministic TAR archive.
//
// Layout:
//
//	blocks/<cid>   raw block bytes
//	index.json     format version and label -> CID map
package bundle

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"xdao.co/stakeledger/cidutil"
	"xdao.co/stakeledger/storage"
)

// FormatVersion is the current index.json schema version.
const FormatVersion = 1

const (
	LabelState = "state"
	LabelSeal  = "seal"
)

var epoch = time.Unix(0, 0).UTC()

type index struct {
	Version int     `json:"version"`
	Blocks  []block `json:"blocks"`
	Labels  []label `json:"labels"`
}

type block struct {
	CID  string `json:"cid"`
	Size int    `json:"size"`
}

type label struct {
	Name string `json:"name"`
	CID  string `json:"cid"`
}

// Export writes every labelled block of cas to w. Identical inputs produce
// identical bytes: entries are sorted and headers carry no host metadata.
func Export(w io.Writer, cas storage.CAS, labels map[string]cid.Cid) error {
	if cas == nil {
		return errors.New("bundle: nil CAS")
	}
	if len(labels) == 0 {
		return errors.New("bundle: nothing to export")
	}

	names := make([]string, 0, len(labels))
	uniq := map[string]cid.Cid{}
	for name, id := range labels {
		if name == "" {
			return errors.New("bundle: empty label")
		}
		if !id.Defined() {
			return fmt.Errorf("bundle: label %q: %w", name, storage.ErrInvalidCID)
		}
		names = append(names, name)
		uniq[id.String()] = id
	}
	sort.Strings(names)
	keys := make([]string, 0, len(uniq))
	for k := range uniq {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	idx := index{Version: FormatVersion}
	for _, name := range names {
		idx.Labels = append(idx.Labels, label{Name: name, CID: labels[name].String()})
	}

	tw := tar.NewWriter(w)
	for _, k := range keys {
		b, err := cas.Get(uniq[k])
		if err != nil {
			_ = tw.Close()
			return fmt.Errorf("bundle: read %s: %w", k, err)
		}
		if cidutil.CIDv1RawSHA256(b) != k {
			_ = tw.Close()
			return fmt.Errorf("bundle: %s: %w", k, storage.ErrCIDMismatch)
		}
		if err := writeEntry(tw, "blocks/"+k, b); err != nil {
			_ = tw.Close()
			return err
		}
		idx.Blocks = append(idx.Blocks, block{CID: k, Size: len(b)})
	}

	ib, err := json.Marshal(idx)
	if err != nil {
		_ = tw.Close()
		return err
	}
	if err := writeEntry(tw, "index.json", append(ib, '\n')); err != nil {
		_ = tw.Close()
		return err
	}
	return tw.Close()
}

// Import copies every block of the archive in r into cas and returns the
// archive's labels. Blocks are checked against their names before writing,
// and every label must name a block present in the archive.
func Import(r io.Reader, cas storage.CAS) (map[string]cid.Cid, error) {
	if cas == nil {
		return nil, errors.New("bundle: nil CAS")
	}

	tr := tar.NewReader(r)
	imported := map[string]struct{}{}
	var idx *index

	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		name := cleanPath(h.Name)
		if name == "" || h.Typeflag != tar.TypeReg {
			return nil, fmt.Errorf("bundle: unexpected entry %q", h.Name)
		}

		switch {
		case name == "index.json":
			if idx != nil {
				return nil, errors.New("bundle: duplicate index.json")
			}
			var parsed index
			dec := json.NewDecoder(tr)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&parsed); err != nil {
				return nil, fmt.Errorf("bundle: decode index: %w", err)
			}
			if parsed.Version != FormatVersion {
				return nil, fmt.Errorf("bundle: unsupported index version %d", parsed.Version)
			}
			idx = &parsed

		case strings.HasPrefix(name, "blocks/"):
			want := strings.TrimPrefix(name, "blocks/")
			if _, err := cidutil.Parse(want); err != nil {
				return nil, fmt.Errorf("bundle: %s: %w", name, storage.ErrInvalidCID)
			}
			if _, dup := imported[want]; dup {
				return nil, fmt.Errorf("bundle: duplicate block %s", want)
			}
			payload, err := io.ReadAll(tr)
			if err != nil {
				return nil, err
			}
			if cidutil.CIDv1RawSHA256(payload) != want {
				return nil, fmt.Errorf("bundle: %s: %w", want, storage.ErrCIDMismatch)
			}
			got, err := cas.Put(payload)
			if err != nil {
				return nil, err
			}
			if got.String() != want {
				return nil, fmt.Errorf("bundle: %s: %w", want, storage.ErrCIDMismatch)
			}
			imported[want] = struct{}{}

		default:
			return nil, fmt.Errorf("bundle: unknown entry %s", name)
		}
	}

	if idx == nil {
		return nil, errors.New("bundle: missing index.json")
	}
	labels := make(map[string]cid.Cid, len(idx.Labels))
	for _, l := range idx.Labels {
		if _, ok := imported[l.CID]; !ok {
			return nil, fmt.Errorf("bundle: label %q names absent block %s", l.Name, l.CID)
		}
		id, err := cidutil.Parse(l.CID)
		if err != nil {
			return nil, err
		}
		labels[l.Name] = id
	}
	return labels, nil
}

func writeEntry(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch,
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, bytes.NewReader(content))
	return err
}

// cleanPath normalises an entry name and rejects anything that could escape
// the archive root.
func cleanPath(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	name = strings.TrimPrefix(strings.TrimPrefix(name, "./"), "/")
	if name == "" {
		return ""
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return name
}
