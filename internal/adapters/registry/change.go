package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"go.trai.ch/ims/internal/core/domain"
	"go.trai.ch/zerr"
)

type changeLine struct {
	Seq     json.RawMessage `json:"seq"`
	ID      string          `json:"id"`
	Deleted bool            `json:"deleted"`
	Doc     *changeDoc      `json:"doc"`
}

type changeDoc struct {
	Versions orderedVersions `json:"versions"`
}

// parseLine decodes one feed line. It reports false for lines that carry no
// package change: design documents and the closing last_seq line.
func parseLine(line []byte) (domain.ChangeEvent, bool, error) {
	var change changeLine
	if err := json.Unmarshal(line, &change); err != nil {
		return domain.ChangeEvent{}, false, errors.Join(domain.ErrFeedParseFailed, err)
	}

	if change.ID == "" || strings.HasPrefix(change.ID, "_") {
		return domain.ChangeEvent{}, false, nil
	}

	seq, err := parseSeq(change.Seq)
	if err != nil {
		return domain.ChangeEvent{}, false, zerr.With(err, "id", change.ID)
	}

	event := domain.ChangeEvent{
		Seq:     seq,
		ID:      change.ID,
		Deleted: change.Deleted,
	}
	if change.Doc != nil {
		event.Versions = change.Doc.Versions
	}
	return event, true, nil
}

// parseSeq accepts numeric sequences and the "<number>-<opaque>" strings of
// clustered servers.
func parseSeq(raw json.RawMessage) (uint64, error) {
	text := strings.Trim(string(bytes.TrimSpace(raw)), `"`)
	if i := strings.IndexByte(text, '-'); i >= 0 {
		text = text[:i]
	}

	seq, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, zerr.With(zerr.Wrap(domain.ErrFeedParseFailed, "invalid sequence"), "seq", string(raw))
	}
	return seq, nil
}

// orderedVersions keeps the versions of a document in the order the
// registry lists them.
type orderedVersions []domain.VersionManifest

type versionDoc struct {
	Dependencies    json.RawMessage `json:"dependencies"`
	DevDependencies json.RawMessage `json:"devDependencies"`
}

func (v *orderedVersions) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		*v = nil
		return nil
	}

	var versions orderedVersions
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		version, _ := keyTok.(string)

		var doc versionDoc
		if err := dec.Decode(&doc); err != nil {
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &typeErr) {
				return err
			}
		}

		versions = append(versions, domain.VersionManifest{
			Version:         version,
			Dependencies:    dependencyMap(doc.Dependencies),
			DevDependencies: dependencyMap(doc.DevDependencies),
		})
	}

	*v = versions
	return nil
}

// dependencyMap decodes a dependencies object. Anything that is not an
// object reads as absent.
func dependencyMap(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}
