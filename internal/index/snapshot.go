package index

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"time"

	"github.com/quotelab/quotesearch/internal/vector"
)

// Snapshot file layout: fixed header, per-term JSON postings blobs, a
// JSON term dictionary with blob offsets, and a CRC32 footer over the
// dictionary. Writes go to a .tmp file renamed into place on success,
// so a crashed save never leaves a readable half-written snapshot.
// Durability beyond that is explicitly not guaranteed.
const (
	snapshotMagic   uint32 = 0x51535631 // "QSV1"
	snapshotVersion uint32 = 1
	headerSize             = 48
	footerSize             = 8
)

type dictEntry struct {
	Term       string `json:"t"`
	PostOffset int64  `json:"o"`
	PostLen    int    `json:"l"`
}

// Save writes the full index state to path atomically.
func Save(ix *Inverted, path string) error {
	entries := ix.Entries()
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating snapshot file: %w", err)
	}
	defer f.Close()

	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[0:4], snapshotMagic)
	binary.LittleEndian.PutUint32(header[4:8], snapshotVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(entries)))
	binary.LittleEndian.PutUint32(header[12:16], uint32(ix.DocCount()))
	binary.LittleEndian.PutUint64(header[16:24], uint64(time.Now().Unix()))
	if _, err := f.Write(header); err != nil {
		return fmt.Errorf("writing snapshot header: %w", err)
	}

	offset := int64(0)
	dict := make([]dictEntry, 0, len(entries))
	for _, entry := range entries {
		blob, err := json.Marshal(entry.Postings)
		if err != nil {
			return fmt.Errorf("marshaling postings for term %q: %w", entry.Term, err)
		}
		if _, err := f.Write(blob); err != nil {
			return fmt.Errorf("writing postings for term %q: %w", entry.Term, err)
		}
		dict = append(dict, dictEntry{Term: entry.Term, PostOffset: offset, PostLen: len(blob)})
		offset += int64(len(blob))
	}

	dictData, err := json.Marshal(dict)
	if err != nil {
		return fmt.Errorf("marshaling dictionary: %w", err)
	}
	if _, err := f.Write(dictData); err != nil {
		return fmt.Errorf("writing dictionary: %w", err)
	}

	footer := make([]byte, footerSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(dictData))
	if _, err := f.Write(footer); err != nil {
		return fmt.Errorf("writing snapshot footer: %w", err)
	}

	binary.LittleEndian.PutUint64(header[24:32], uint64(headerSize)+uint64(offset))
	binary.LittleEndian.PutUint64(header[32:40], uint64(len(dictData)))
	if _, err := f.WriteAt(header, 0); err != nil {
		return fmt.Errorf("updating snapshot header: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing snapshot file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing snapshot file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// Load reads a snapshot and reconstructs the index, rebuilding each
// document's search vector from the postings it appears in.
func Load(path string) (*Inverted, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot file: %w", err)
	}
	if len(data) < headerSize+footerSize {
		return nil, fmt.Errorf("snapshot file truncated: %d bytes", len(data))
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != snapshotMagic {
		return nil, fmt.Errorf("invalid snapshot: bad magic %x", magic)
	}
	if version := binary.LittleEndian.Uint32(data[4:8]); version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", version)
	}
	dictOffset := int64(binary.LittleEndian.Uint64(data[24:32]))
	dictLen := int64(binary.LittleEndian.Uint64(data[32:40]))
	if dictOffset+dictLen+footerSize > int64(len(data)) {
		return nil, fmt.Errorf("snapshot dictionary out of bounds")
	}
	dictData := data[dictOffset : dictOffset+dictLen]
	wantCRC := binary.LittleEndian.Uint32(data[dictOffset+dictLen : dictOffset+dictLen+4])
	if got := crc32.ChecksumIEEE(dictData); got != wantCRC {
		return nil, fmt.Errorf("snapshot dictionary checksum mismatch: %x != %x", got, wantCRC)
	}
	var dict []dictEntry
	if err := json.Unmarshal(dictData, &dict); err != nil {
		return nil, fmt.Errorf("parsing dictionary: %w", err)
	}

	vectors := make(map[string]vector.SearchVector)
	for _, entry := range dict {
		start := int64(headerSize) + entry.PostOffset
		end := start + int64(entry.PostLen)
		if end > dictOffset {
			return nil, fmt.Errorf("postings for term %q out of bounds", entry.Term)
		}
		var postings PostingList
		if err := json.Unmarshal(data[start:end], &postings); err != nil {
			return nil, fmt.Errorf("parsing postings for term %q: %w", entry.Term, err)
		}
		for _, p := range postings {
			sv, ok := vectors[p.DocID]
			if !ok {
				sv = make(vector.SearchVector)
				vectors[p.DocID] = sv
			}
			sv[entry.Term] = p.Occurrences
		}
	}

	ix := NewInverted()
	for docID, sv := range vectors {
		ix.Insert(docID, sv)
	}
	return ix, nil
}
