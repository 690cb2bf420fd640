package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/proximity-search/internal/indexer/index"
)

// MagicBytes identifies a valid .pxs segment file.
const (
	MagicBytes    uint32 = 0x50585331
	FormatVersion uint32 = 2
	HeaderSize    int    = 64
	FooterSize    int    = 16
	Extension            = ".pxs"
)

// SegmentHeader is the 64-byte header written at the start of every segment.
//
//	0  magic      4  version    8  terms     12 docs
//	16 created    24 dictOff    32 dictSize  40 docsOff
//	48 docsSize   56 postSize
type SegmentHeader struct {
	Magic      uint32
	Version    uint32
	TermCount  uint32
	DocCount   uint32
	CreatedAt  int64
	DictOffset int64
	DictSize   int64
	DocsOffset int64
	DocsSize   int64
	PostSize   int64
}

func (h SegmentHeader) encode() []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint32(b[8:12], h.TermCount)
	binary.LittleEndian.PutUint32(b[12:16], h.DocCount)
	binary.LittleEndian.PutUint64(b[16:24], uint64(h.CreatedAt))
	binary.LittleEndian.PutUint64(b[24:32], uint64(h.DictOffset))
	binary.LittleEndian.PutUint64(b[32:40], uint64(h.DictSize))
	binary.LittleEndian.PutUint64(b[40:48], uint64(h.DocsOffset))
	binary.LittleEndian.PutUint64(b[48:56], uint64(h.DocsSize))
	binary.LittleEndian.PutUint64(b[56:64], uint64(h.PostSize))
	return b
}

func decodeHeader(b []byte) SegmentHeader {
	return SegmentHeader{
		Magic:      binary.LittleEndian.Uint32(b[0:4]),
		Version:    binary.LittleEndian.Uint32(b[4:8]),
		TermCount:  binary.LittleEndian.Uint32(b[8:12]),
		DocCount:   binary.LittleEndian.Uint32(b[12:16]),
		CreatedAt:  int64(binary.LittleEndian.Uint64(b[16:24])),
		DictOffset: int64(binary.LittleEndian.Uint64(b[24:32])),
		DictSize:   int64(binary.LittleEndian.Uint64(b[32:40])),
		DocsOffset: int64(binary.LittleEndian.Uint64(b[40:48])),
		DocsSize:   int64(binary.LittleEndian.Uint64(b[48:56])),
		PostSize:   int64(binary.LittleEndian.Uint64(b[56:64])),
	}
}

// DictEntry maps a term to its vocabulary order and the location of its
// postings. Postings offsets are relative to the end of the header.
type DictEntry struct {
	Term       string `json:"t"`
	Order      uint32 `json:"n"`
	PostOffset int64  `json:"o"`
	PostLen    int    `json:"l"`
	DocFreq    int    `json:"d"`
}

// Writer serialises records into new segment files.
type Writer struct {
	dataDir string

	mu   sync.Mutex
	last int64
}

// NewWriter creates a Writer that writes segments into the given directory.
func NewWriter(dataDir string) *Writer {
	return &Writer{dataDir: dataDir}
}

// nextStamp returns a strictly increasing timestamp so that segments
// written within the same clock tick still get distinct names.
func (w *Writer) nextStamp() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := time.Now().UnixNano()
	if now <= w.last {
		now = w.last + 1
	}
	w.last = now
	return now
}

// Write atomically creates a new segment holding records and the
// documents they reference. It writes to a .tmp file first and renames on
// success.
func (w *Writer) Write(records []index.Record, docs []index.DocInfo) (string, error) {
	if len(records) == 0 {
		return "", fmt.Errorf("cannot write empty segment")
	}
	segmentName := fmt.Sprintf("seg_%d%s", w.nextStamp(), Extension)
	finalPath := filepath.Join(w.dataDir, segmentName)
	tmpPath := finalPath + ".tmp"

	if err := os.MkdirAll(w.dataDir, 0755); err != nil {
		return "", fmt.Errorf("creating segment directory: %w", err)
	}
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp segment file: %w", err)
	}
	defer f.Close()

	header := SegmentHeader{
		Magic:     MagicBytes,
		Version:   FormatVersion,
		TermCount: uint32(len(records)),
		DocCount:  uint32(len(docs)),
		CreatedAt: time.Now().Unix(),
	}
	if _, err := f.Write(header.encode()); err != nil {
		return "", fmt.Errorf("writing header: %w", err)
	}

	pos := int64(HeaderSize)
	dict := make([]DictEntry, 0, len(records))
	for _, rec := range records {
		data, err := json.Marshal(rec.Postings)
		if err != nil {
			return "", fmt.Errorf("marshaling postings for term %q: %w", rec.Term, err)
		}
		if _, err := f.Write(data); err != nil {
			return "", fmt.Errorf("writing postings for term %q: %w", rec.Term, err)
		}
		dict = append(dict, DictEntry{
			Term:       rec.Term,
			Order:      rec.Order,
			PostOffset: pos - int64(HeaderSize),
			PostLen:    len(data),
			DocFreq:    len(rec.Postings),
		})
		pos += int64(len(data))
	}
	header.PostSize = pos - int64(HeaderSize)

	dictData, err := json.Marshal(dict)
	if err != nil {
		return "", fmt.Errorf("marshaling dictionary: %w", err)
	}
	if _, err := f.Write(dictData); err != nil {
		return "", fmt.Errorf("writing dictionary: %w", err)
	}
	header.DictOffset, header.DictSize = pos, int64(len(dictData))
	pos += int64(len(dictData))

	docsData, err := json.Marshal(docs)
	if err != nil {
		return "", fmt.Errorf("marshaling document table: %w", err)
	}
	if _, err := f.Write(docsData); err != nil {
		return "", fmt.Errorf("writing document table: %w", err)
	}
	header.DocsOffset, header.DocsSize = pos, int64(len(docsData))

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(dictData))
	binary.LittleEndian.PutUint32(footer[4:8], crc32.ChecksumIEEE(docsData))
	binary.LittleEndian.PutUint64(footer[8:16], uint64(header.PostSize))
	if _, err := f.Write(footer); err != nil {
		return "", fmt.Errorf("writing footer: %w", err)
	}
	if _, err := f.WriteAt(header.encode(), 0); err != nil {
		return "", fmt.Errorf("updating header: %w", err)
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("syncing segment file: %w", err)
	}
	f.Close()
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("renaming segment file: %w", err)
	}
	return segmentName, nil
}
