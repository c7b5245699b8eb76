package plugins

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html"
)

// Block is one top-level section of a single-file component.
type Block struct {
	Tag     string
	Attrs   map[string]string
	Content string
}

// Lang returns the lang attribute, if any.
func (b Block) Lang() string {
	return b.Attrs["lang"]
}

// Has reports whether the attribute is present.
func (b Block) Has(attr string) bool {
	_, ok := b.Attrs[attr]
	return ok
}

// Descriptor holds the parsed blocks of a .vue file.
type Descriptor struct {
	Template *Block
	Script   *Block
	Styles   []Block
	Custom   []Block
}

var (
	ErrNoTemplate   = errors.New("component has no <template> block")
	ErrNoScript     = errors.New("component has no <script> block")
	ErrScriptSetup  = errors.New("<script setup> is not supported, use an options object with export default")
	ErrManyScripts  = errors.New("component has more than one <script> block")
	ErrManyTemplate = errors.New("component has more than one <template> block")
)

// ParseSFC splits src into its top-level blocks. Block contents are kept byte for byte so
// component tags keep their case.
func ParseSFC(src []byte) (*Descriptor, error) {
	z := html.NewTokenizer(bytes.NewReader(src))

	var (
		desc    Descriptor
		current *Block
		depth   int
		content bytes.Buffer
	)

	finish := func() error {
		current.Content = content.String()
		content.Reset()

		switch current.Tag {
		case "template":
			if desc.Template != nil {
				return ErrManyTemplate
			}
			desc.Template = current
		case "script":
			if desc.Script != nil {
				return ErrManyScripts
			}
			desc.Script = current
		case "style":
			desc.Styles = append(desc.Styles, *current)
		default:
			desc.Custom = append(desc.Custom, *current)
		}

		current = nil
		return nil
	}

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				if current != nil {
					return nil, fmt.Errorf("unterminated <%s> block", current.Tag)
				}
				return &desc, nil
			}
			return nil, z.Err()

		case html.StartTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)

			if current == nil {
				current = &Block{Tag: tag, Attrs: readAttrs(z, hasAttr)}
				depth = 1
				continue
			}

			if tag == current.Tag {
				depth++
			}
			content.Write(z.Raw())

		case html.EndTagToken:
			if current == nil {
				continue
			}

			name, _ := z.TagName()
			if string(name) == current.Tag {
				depth--
				if depth == 0 {
					if err := finish(); err != nil {
						return nil, err
					}
					continue
				}
			}
			content.Write(z.Raw())

		default:
			if current != nil {
				content.Write(z.Raw())
			}
		}
	}
}

func readAttrs(z *html.Tokenizer, more bool) map[string]string {
	attrs := make(map[string]string)
	for more {
		var key, val []byte
		key, val, more = z.TagAttr()
		attrs[string(key)] = string(val)
	}
	return attrs
}

// Validate reports descriptors the plugin cannot compile.
func (d *Descriptor) Validate() error {
	if d.Template == nil {
		return ErrNoTemplate
	}
	if d.Script == nil {
		return ErrNoScript
	}
	if d.Script.Has("setup") {
		return ErrScriptSetup
	}
	return nil
}
