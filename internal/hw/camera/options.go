package camera

import (
	"errors"
	"fmt"
	"strings"
)

// OutputFormat selects what the capability hands back for a capture.
type OutputFormat int

const (
	// InlineData returns the base64 encoded image. Memory hungry for large
	// images; prefer FileReference when the host allows it.
	InlineData OutputFormat = iota
	// FileReference returns a file URI (e.g. content://media/... on Android).
	FileReference
	// NativeReference returns a platform URI (e.g. asset-library://... on iOS).
	NativeReference
)

var outputFormatNames = map[OutputFormat]string{
	InlineData:      "inline_data",
	FileReference:   "file_reference",
	NativeReference: "native_reference",
}

func (f OutputFormat) String() string {
	if s, ok := outputFormatNames[f]; ok {
		return s
	}
	return fmt.Sprintf("output_format(%d)", int(f))
}

func (f OutputFormat) MarshalText() ([]byte, error) {
	if _, ok := outputFormatNames[f]; !ok {
		return nil, fmt.Errorf("unknown output format %d", int(f))
	}
	return []byte(f.String()), nil
}

func (f *OutputFormat) UnmarshalText(text []byte) error {
	for k, v := range outputFormatNames {
		if strings.EqualFold(v, string(text)) {
			*f = k
			return nil
		}
	}
	return fmt.Errorf("unknown output format %q", text)
}

// Encoding is the image file encoding.
type Encoding int

const (
	JPEG Encoding = iota
	PNG
)

var encodingNames = map[Encoding]string{
	JPEG: "jpeg",
	PNG:  "png",
}

func (e Encoding) String() string {
	if s, ok := encodingNames[e]; ok {
		return s
	}
	return fmt.Sprintf("encoding(%d)", int(e))
}

// MIMEType returns the media type used in data URIs.
func (e Encoding) MIMEType() string {
	if e == PNG {
		return "image/png"
	}
	return "image/jpeg"
}

func (e Encoding) MarshalText() ([]byte, error) {
	if _, ok := encodingNames[e]; !ok {
		return nil, fmt.Errorf("unknown encoding %d", int(e))
	}
	return []byte(e.String()), nil
}

func (e *Encoding) UnmarshalText(text []byte) error {
	for k, v := range encodingNames {
		if strings.EqualFold(v, string(text)) {
			*e = k
			return nil
		}
	}
	return fmt.Errorf("unknown encoding %q", text)
}

// MediaKind restricts what can be selected.
type MediaKind int

const (
	Picture MediaKind = iota
	Video
	AnyMedia
)

var mediaKindNames = map[MediaKind]string{
	Picture:  "picture",
	Video:    "video",
	AnyMedia: "any",
}

func (m MediaKind) String() string {
	if s, ok := mediaKindNames[m]; ok {
		return s
	}
	return fmt.Sprintf("media_kind(%d)", int(m))
}

func (m MediaKind) MarshalText() ([]byte, error) {
	if _, ok := mediaKindNames[m]; !ok {
		return nil, fmt.Errorf("unknown media kind %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *MediaKind) UnmarshalText(text []byte) error {
	for k, v := range mediaKindNames {
		if strings.EqualFold(v, string(text)) {
			*m = k
			return nil
		}
	}
	return fmt.Errorf("unknown media kind %q", text)
}

// Options configures a single capture. It is passed by value and never
// mutated by the camera.
type Options struct {
	// Quality is 0-100, where 100 means no loss from compression.
	Quality      int          `yaml:"quality" json:"quality"`
	OutputFormat OutputFormat `yaml:"output_format" json:"output_format"`
	Encoding     Encoding     `yaml:"encoding" json:"encoding"`
	// TargetWidth and TargetHeight scale the image; both or neither.
	TargetWidth  int       `yaml:"target_width,omitempty" json:"target_width,omitempty"`
	TargetHeight int       `yaml:"target_height,omitempty" json:"target_height,omitempty"`
	MediaKind    MediaKind `yaml:"media_kind" json:"media_kind"`
	AllowEdit    bool      `yaml:"allow_edit" json:"allow_edit"`
}

// DefaultOptions returns quality 50, inline JPEG data, pictures only, no editing.
func DefaultOptions() Options {
	return Options{
		Quality:      50,
		OutputFormat: InlineData,
		Encoding:     JPEG,
		MediaKind:    Picture,
	}
}

// Validate checks ranges and that the target size is set as a pair.
func (o Options) Validate() error {
	var errs []error
	if o.Quality < 0 || o.Quality > 100 {
		errs = append(errs, fmt.Errorf("quality must be between 0 and 100, got %d", o.Quality))
	}
	if _, ok := outputFormatNames[o.OutputFormat]; !ok {
		errs = append(errs, fmt.Errorf("unknown output format %d", int(o.OutputFormat)))
	}
	if _, ok := encodingNames[o.Encoding]; !ok {
		errs = append(errs, fmt.Errorf("unknown encoding %d", int(o.Encoding)))
	}
	if _, ok := mediaKindNames[o.MediaKind]; !ok {
		errs = append(errs, fmt.Errorf("unknown media kind %d", int(o.MediaKind)))
	}
	if (o.TargetWidth == 0) != (o.TargetHeight == 0) {
		errs = append(errs, errors.New("target_width and target_height must be set together"))
	}
	if o.TargetWidth < 0 || o.TargetHeight < 0 {
		errs = append(errs, fmt.Errorf("target size must be positive, got %dx%d", o.TargetWidth, o.TargetHeight))
	}
	return errors.Join(errs...)
}

// HasTargetSize reports whether a scale constraint is set.
func (o Options) HasTargetSize() bool {
	return o.TargetWidth > 0 && o.TargetHeight > 0
}

// Reference turns what the capability returned into the image reference
// kept by the session. Inline data becomes a data URI; file and native
// references are kept as returned.
func Reference(raw string, o Options) string {
	if o.OutputFormat != InlineData || strings.HasPrefix(raw, "data:") {
		return raw
	}
	return "data:" + o.Encoding.MIMEType() + ";base64," + raw
}
