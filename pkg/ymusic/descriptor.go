package ymusic

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Descriptor is the indirection document behind a downloadInfoUrl.
type Descriptor struct {
	Host string `xml:"host"`
	Path string `xml:"path"`
	TS   string `xml:"ts"`
	S    string `xml:"s"`
}

// ParseDescriptor decodes a download-info XML document. The root element
// name is not checked; every field is required.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := xml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: descriptor: %v", ErrMalformed, err)
	}
	d.Host = strings.TrimSpace(d.Host)
	d.Path = strings.TrimSpace(d.Path)
	d.TS = strings.TrimSpace(d.TS)
	d.S = strings.TrimSpace(d.S)

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"host", d.Host}, {"path", d.Path}, {"ts", d.TS}, {"s", d.S},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: descriptor missing %s", ErrMalformed, strings.Join(missing, ", "))
	}
	return &d, nil
}

// URL builds the playable stream URL.
func (d *Descriptor) URL() string {
	return "https://" + d.Host + "/get-mp3/" + d.S + "/" + d.TS + d.Path
}
