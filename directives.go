package exmodel

import (
	"sort"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// rawDirectives is the typed view of a node's scalar directives, decoded
// from the authored map. Structural directives ($type, $extend, $include*,
// $data, $default, $allowed, $fn, $g) are pulled out before decoding; any
// key left over after the decode is an unknown directive and a
// schema-compile error.
type rawDirectives struct {
	Nullable     *bool             `mapstructure:"$nullable"`
	Optional     *bool             `mapstructure:"$optional"`
	Empty        *bool             `mapstructure:"$empty"`
	Length       *int              `mapstructure:"$length"`
	MinLength    *int              `mapstructure:"$minLength"`
	MaxLength    *int              `mapstructure:"$maxLength"`
	Min          any               `mapstructure:"$min"`
	Max          any               `mapstructure:"$max"`
	MinExclusive any               `mapstructure:"$minExclusive"`
	MaxExclusive any               `mapstructure:"$maxExclusive"`
	Exp          string            `mapstructure:"$exp"`
	PK           *bool             `mapstructure:"$pk"`
	FK           string            `mapstructure:"$fk"`
	Unique       any               `mapstructure:"$unique"`
	R            string            `mapstructure:"$r"`
	W            string            `mapstructure:"$w"`
	A            string            `mapstructure:"$a"`
	Delta        *bool             `mapstructure:"$delta"`
	Format       *string           `mapstructure:"$format"`
	Precision    *int              `mapstructure:"$precision"`
	Scale        *int              `mapstructure:"$scale"`
	CSSNames     *bool             `mapstructure:"$cssNames"`
	ExtraNames   map[string]string `mapstructure:"$extraNames"`
	Separator    *string           `mapstructure:"$separator"`
	Port         *bool             `mapstructure:"$port"`
	LeapYear     *bool             `mapstructure:"$leapYear"`
	LeapSecond   *bool             `mapstructure:"$leapSecond"`
	Version      string            `mapstructure:"$version"`
}

// decodeDirectives maps the remaining $-keys onto rawDirectives. Weak
// typing mirrors the descriptor surface: JSON loaders hand over float64
// where the schema wants an int.
func decodeDirectives(dirs map[string]any) (*rawDirectives, error) {
	var rd rawDirectives
	var meta mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &rd,
		Metadata:         &meta,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(dirs); err != nil {
		return nil, errors.Wrap(err, "schema: bad directive value")
	}
	if len(meta.Unused) > 0 {
		sort.Strings(meta.Unused)
		return nil, errors.Errorf("schema: unknown directive %q", meta.Unused[0])
	}
	return &rd, nil
}
