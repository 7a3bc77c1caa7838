package tagreader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/dhowden/tag"

	"phono/internal/metadata"
)

// Reader extracts raw tag data from local audio files. ID3v1/v2, MP4 atoms,
// FLAC and OGG vorbis comments are handled by the generic parser; files that
// carry no tag at all read as an empty record rather than an error, since the
// decoder still supplies duration and audio properties.
type Reader struct{}

// ReadTags reads tag fields for the file at path.
func (Reader) ReadTags(path string) (metadata.Raw, error) {
	file, err := os.Open(path)
	if err != nil {
		return metadata.Raw{}, fmt.Errorf("%w: open: %v", metadata.ErrUnreadableMetadata, err)
	}
	defer file.Close()

	meta, err := tag.ReadFrom(file)
	switch {
	case err == nil:
		trackNum, _ := meta.Track()
		return metadata.Raw{
			Title:    meta.Title(),
			Artist:   meta.Artist(),
			Album:    meta.Album(),
			TrackNum: trackNum,
		}, nil
	case errors.Is(err, tag.ErrNoTagsFound):
		return metadata.Raw{}, nil
	default:
		if strings.EqualFold(filepath.Ext(path), ".mp3") {
			if raw, id3Err := readID3(path); id3Err == nil {
				return raw, nil
			}
		}
		return metadata.Raw{}, fmt.Errorf("%w: %v", metadata.ErrUnreadableMetadata, err)
	}
}

// readID3 is the fallback for mp3 files whose framing confuses the generic
// parser but still carry a parseable ID3v2 tag.
func readID3(path string) (metadata.Raw, error) {
	tagFile, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return metadata.Raw{}, err
	}
	defer tagFile.Close()

	raw := metadata.Raw{
		Title:  tagFile.Title(),
		Artist: tagFile.Artist(),
		Album:  tagFile.Album(),
	}
	frame := tagFile.GetTextFrame(tagFile.CommonID("Track number/Position in set"))
	if text := strings.TrimSpace(frame.Text); text != "" {
		if num, err := strconv.Atoi(strings.SplitN(text, "/", 2)[0]); err == nil {
			raw.TrackNum = num
		}
	}
	return raw, nil
}
