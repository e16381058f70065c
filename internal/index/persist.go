package index

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Artifact file names. CurrentFile sits in the index directory and names the
// committed snapshot directory, which holds VectorsFile, PayloadsFile and
// SourcesFile. Snapshots without SourcesFile load with no recorded sources.
const (
	CurrentFile  = "CURRENT"
	VectorsFile  = "index.vec"
	PayloadsFile = "index.payloads"
	SourcesFile  = "sources.json"

	snapshotPrefix = "snap-"
)

// maxPayloadBytes bounds the decoded payload body so a damaged header cannot
// drive allocation.
const maxPayloadBytes = math.MaxInt32

// renameFile is replaced in tests to fail the pointer switch.
var renameFile = os.Rename

const formatVersion uint16 = 1

var (
	vectorsMagic  = [4]byte{'Q', 'R', 'V', 'I'}
	payloadsMagic = [4]byte{'Q', 'R', 'V', 'P'}

	errSnapshotMismatch = errors.New("vector and payload artifacts belong to different snapshots")
)

type vectorsHeader struct {
	Magic    [4]byte
	Version  uint16
	Flags    uint16
	Dim      uint32
	Rows     uint64
	Snapshot [16]byte
}

type payloadsHeader struct {
	Magic    [4]byte
	Version  uint16
	Codec    uint8
	_        uint8
	Count    uint64
	Snapshot [16]byte
	RawLen   uint64
	BodyLen  uint64
}

// Exists reports whether dir holds a committed snapshot with both artifacts.
func Exists(dir string) bool {
	name, err := readCurrent(dir)
	if err != nil {
		return false
	}
	for _, file := range []string{VectorsFile, PayloadsFile} {
		if _, err := os.Stat(filepath.Join(dir, name, file)); err != nil {
			return false
		}
	}
	return true
}

// ReadDimension returns the dimension recorded in the current vector artifact header.
func ReadDimension(dir string) (int, error) {
	name, err := readCurrent(dir)
	if err != nil {
		return 0, &PersistenceError{Op: "inspect", Path: filepath.Join(dir, CurrentFile), Err: err}
	}
	path := filepath.Join(dir, name, VectorsFile)
	fh, err := os.Open(path)
	if err != nil {
		return 0, &PersistenceError{Op: "inspect", Path: path, Err: err}
	}
	defer fh.Close()

	var h vectorsHeader
	if err := binary.Read(fh, binary.LittleEndian, &h); err != nil {
		return 0, &PersistenceError{Op: "inspect", Path: path, Err: err}
	}
	if h.Magic != vectorsMagic {
		return 0, &PersistenceError{Op: "inspect", Path: path, Err: errors.New("bad magic")}
	}
	return int(h.Dim), nil
}

// Save writes the index into a fresh snapshot directory under dir and then
// switches the CURRENT pointer to it with a single rename. Until that rename
// the previous snapshot stays the one Load reads.
func (f *Flat) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &PersistenceError{Op: "save", Path: dir, Err: err}
	}

	f.mu.RLock()
	snapshot := uuid.New()
	vec := encodeVectors(f.dim, f.vectors, len(f.payloads), snapshot)
	pay, err := encodePayloads(f.payloads, f.codec, snapshot)
	rows := len(f.payloads)
	var src []byte
	if err == nil {
		src, err = json.Marshal(f.sources)
	}
	f.mu.RUnlock()
	if err != nil {
		return &PersistenceError{Op: "save", Path: dir, Err: err}
	}

	name := snapshotPrefix + snapshot.String()
	snapDir := filepath.Join(dir, name)
	if err := os.Mkdir(snapDir, 0o755); err != nil {
		return &PersistenceError{Op: "save", Path: snapDir, Err: err}
	}
	fail := func(path string, err error) error {
		os.RemoveAll(snapDir)
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}

	for _, a := range []struct {
		file string
		data []byte
	}{{VectorsFile, vec}, {PayloadsFile, pay}, {SourcesFile, src}} {
		path := filepath.Join(snapDir, a.file)
		if err := writeFileSync(path, a.data); err != nil {
			return fail(path, err)
		}
	}
	if err := syncDir(snapDir); err != nil {
		return fail(snapDir, err)
	}

	tmp, err := writeTemp(dir, CurrentFile, []byte(name+"\n"))
	if err != nil {
		return fail(filepath.Join(dir, CurrentFile), err)
	}
	if err := renameFile(tmp, filepath.Join(dir, CurrentFile)); err != nil {
		os.Remove(tmp)
		return fail(filepath.Join(dir, CurrentFile), err)
	}
	if err := syncDir(dir); err != nil {
		f.logger.Warn("index directory sync failed", "component", "index", "path", dir, "error", err)
	}

	removeStaleSnapshots(dir, name)

	f.logger.Debug("index saved", "component", "index", "path", snapDir, "rows", rows,
		"dimension", f.dim, "codec", f.codec.String(), "snapshot", snapshot.String())
	return nil
}

// Load replaces the index contents with the snapshot CURRENT points to. The
// stored dimension must equal the index dimension. On error the index is unchanged.
func (f *Flat) Load(dir string) error {
	name, err := readCurrent(dir)
	if err != nil {
		return &PersistenceError{Op: "load", Path: filepath.Join(dir, CurrentFile), Err: err}
	}
	snapDir := filepath.Join(dir, name)
	vecPath := filepath.Join(snapDir, VectorsFile)
	payPath := filepath.Join(snapDir, PayloadsFile)

	vecData, err := os.ReadFile(vecPath)
	if err != nil {
		return &PersistenceError{Op: "load", Path: vecPath, Err: err}
	}
	payData, err := os.ReadFile(payPath)
	if err != nil {
		return &PersistenceError{Op: "load", Path: payPath, Err: err}
	}

	vh, vectors, err := decodeVectors(vecData)
	if err != nil {
		return &PersistenceError{Op: "load", Path: vecPath, Err: err}
	}
	if int(vh.Dim) != f.dim {
		return &PersistenceError{Op: "load", Path: vecPath,
			Err: &DimensionMismatchError{Expected: f.dim, Actual: int(vh.Dim)}}
	}

	ph, payloads, err := decodePayloads(payData)
	if err != nil {
		return &PersistenceError{Op: "load", Path: payPath, Err: err}
	}
	if ph.Snapshot != vh.Snapshot {
		return &PersistenceError{Op: "load", Path: snapDir, Err: errSnapshotMismatch}
	}
	if ph.Count != vh.Rows {
		return &PersistenceError{Op: "load", Path: snapDir,
			Err: fmt.Errorf("row count %d does not match payload count %d", vh.Rows, ph.Count)}
	}

	sources := make(map[string]string)
	srcPath := filepath.Join(snapDir, SourcesFile)
	if data, err := os.ReadFile(srcPath); err == nil {
		if err := json.Unmarshal(data, &sources); err != nil {
			return &PersistenceError{Op: "load", Path: srcPath, Err: err}
		}
		if sources == nil {
			sources = make(map[string]string)
		}
	} else if !os.IsNotExist(err) {
		return &PersistenceError{Op: "load", Path: srcPath, Err: err}
	}

	seen := make(map[string]struct{}, len(payloads))
	for _, p := range payloads {
		seen[p] = struct{}{}
	}

	f.mu.Lock()
	f.vectors = vectors
	f.payloads = payloads
	f.seen = seen
	f.sources = sources
	f.mu.Unlock()

	f.logger.Debug("index loaded", "component", "index", "path", snapDir, "rows", len(payloads),
		"dimension", f.dim, "snapshot", uuid.UUID(vh.Snapshot).String())
	return nil
}

// readCurrent returns the snapshot directory name recorded in dir/CURRENT.
func readCurrent(dir string) (string, error) {
	b, err := os.ReadFile(filepath.Join(dir, CurrentFile))
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(string(b))
	if !strings.HasPrefix(name, snapshotPrefix) || filepath.Base(name) != name {
		return "", fmt.Errorf("malformed snapshot pointer %q", name)
	}
	return name, nil
}

// removeStaleSnapshots deletes snapshot directories other than keep, including
// ones left behind by interrupted saves.
func removeStaleSnapshots(dir, keep string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() && e.Name() != keep && strings.HasPrefix(e.Name(), snapshotPrefix) {
			os.RemoveAll(filepath.Join(dir, e.Name()))
		}
	}
}

func writeFileSync(path string, data []byte) error {
	fh, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := fh.Write(data); err != nil {
		fh.Close()
		return err
	}
	if err := fh.Sync(); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

func syncDir(dir string) error {
	fh, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer fh.Close()
	return fh.Sync()
}

func writeTemp(dir, name string, data []byte) (string, error) {
	fh, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return "", err
	}
	tmp := fh.Name()
	if _, err := fh.Write(data); err != nil {
		fh.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := fh.Sync(); err != nil {
		fh.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := fh.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}

func encodeVectors(dim int, vectors []float32, rows int, snapshot uuid.UUID) []byte {
	var buf bytes.Buffer
	h := vectorsHeader{
		Magic:    vectorsMagic,
		Version:  formatVersion,
		Dim:      uint32(dim),
		Rows:     uint64(rows),
		Snapshot: snapshot,
	}
	binary.Write(&buf, binary.LittleEndian, &h)

	data := make([]byte, len(vectors)*4)
	for i, v := range vectors {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	buf.Write(data)
	binary.Write(&buf, binary.LittleEndian, crc32.ChecksumIEEE(data))
	return buf.Bytes()
}

func decodeVectors(b []byte) (vectorsHeader, []float32, error) {
	var h vectorsHeader
	r := bytes.NewReader(b)
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return h, nil, fmt.Errorf("read header: %w", err)
	}
	if h.Magic != vectorsMagic {
		return h, nil, errors.New("bad magic")
	}
	if h.Version != formatVersion {
		return h, nil, fmt.Errorf("unsupported format version %d", h.Version)
	}
	if h.Dim == 0 {
		return h, nil, &InvalidDimensionError{Dimension: 0}
	}

	if r.Len() < 4 {
		return h, nil, errors.New("truncated vector data")
	}
	have := uint64(r.Len() - 4)
	rowBytes := 4 * uint64(h.Dim)
	if h.Rows > have/rowBytes {
		return h, nil, fmt.Errorf("header declares %d rows of dimension %d, data holds %d bytes", h.Rows, h.Dim, have)
	}
	size := h.Rows * rowBytes
	if size != have {
		return h, nil, fmt.Errorf("truncated vector data: have %d bytes, want %d", have, size)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return h, nil, err
	}
	var sum uint32
	if err := binary.Read(r, binary.LittleEndian, &sum); err != nil {
		return h, nil, err
	}
	if got := crc32.ChecksumIEEE(data); got != sum {
		return h, nil, &ChecksumMismatchError{Artifact: VectorsFile, Expected: sum, Actual: got}
	}

	vectors := make([]float32, len(data)/4)
	for i := range vectors {
		vectors[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return h, vectors, nil
}

func encodePayloads(payloads []string, codec Codec, snapshot uuid.UUID) ([]byte, error) {
	var raw []byte
	for _, p := range payloads {
		raw = binary.AppendUvarint(raw, uint64(len(p)))
		raw = append(raw, p...)
	}

	body, used, err := compress(codec, raw)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	h := payloadsHeader{
		Magic:    payloadsMagic,
		Version:  formatVersion,
		Codec:    uint8(used),
		Count:    uint64(len(payloads)),
		Snapshot: snapshot,
		RawLen:   uint64(len(raw)),
		BodyLen:  uint64(len(body)),
	}
	binary.Write(&buf, binary.LittleEndian, &h)
	buf.Write(body)
	binary.Write(&buf, binary.LittleEndian, crc32.ChecksumIEEE(raw))
	return buf.Bytes(), nil
}

func decodePayloads(b []byte) (payloadsHeader, []string, error) {
	var h payloadsHeader
	r := bytes.NewReader(b)
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return h, nil, fmt.Errorf("read header: %w", err)
	}
	if h.Magic != payloadsMagic {
		return h, nil, errors.New("bad magic")
	}
	if h.Version != formatVersion {
		return h, nil, fmt.Errorf("unsupported format version %d", h.Version)
	}
	if r.Len() < 4 || uint64(r.Len()-4) != h.BodyLen {
		return h, nil, fmt.Errorf("truncated payload data: have %d bytes, header declares %d", r.Len(), h.BodyLen)
	}
	if err := checkRawLen(Codec(h.Codec), h.RawLen, h.BodyLen); err != nil {
		return h, nil, err
	}

	body := make([]byte, h.BodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return h, nil, err
	}
	var sum uint32
	if err := binary.Read(r, binary.LittleEndian, &sum); err != nil {
		return h, nil, err
	}

	raw, err := decompress(Codec(h.Codec), body, int(h.RawLen))
	if err != nil {
		return h, nil, fmt.Errorf("decompress %s: %w", Codec(h.Codec), err)
	}
	if got := crc32.ChecksumIEEE(raw); got != sum {
		return h, nil, &ChecksumMismatchError{Artifact: PayloadsFile, Expected: sum, Actual: got}
	}

	// Every record takes at least its one-byte length prefix.
	if h.Count > uint64(len(raw)) {
		return h, nil, fmt.Errorf("header declares %d payloads in %d bytes", h.Count, len(raw))
	}
	payloads := make([]string, 0, h.Count)
	for pos := 0; pos < len(raw); {
		n, w := binary.Uvarint(raw[pos:])
		if w <= 0 || uint64(len(raw)-pos-w) < n {
			return h, nil, errors.New("malformed payload record")
		}
		pos += w
		payloads = append(payloads, string(raw[pos:pos+int(n)]))
		pos += int(n)
	}
	if uint64(len(payloads)) != h.Count {
		return h, nil, fmt.Errorf("payload count %d does not match header %d", len(payloads), h.Count)
	}
	return h, payloads, nil
}
