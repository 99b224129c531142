package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	PageGeometry struct {
		Width  int `yaml:"width" validate:"min=200"`
		Height int `yaml:"height" validate:"min=300"`
	}

	// FitConfig names every empirically tuned fit/overflow threshold used
	// by the paginator. Values were settled by visual tuning - treat them
	// as product constants, not derivable numbers.
	FitConfig struct {
		TolerancePx           float64 `yaml:"tolerance_px" validate:"gte=0"`
		SafetyMarginPx        float64 `yaml:"safety_margin_px" validate:"gte=0"`
		DefaultBottomMarginPx float64 `yaml:"default_bottom_margin_px" validate:"gte=0"`
		KaraokeBottomMarginPx float64 `yaml:"karaoke_bottom_margin_px" validate:"gte=0"`
		HeadingPaddingPx      float64 `yaml:"heading_padding_px" validate:"gte=0"`
		UnderfillMinPx        float64 `yaml:"underfill_min_px" validate:"gte=0"`
		UnderfillMaxPx        float64 `yaml:"underfill_max_px" validate:"gte=0"`
		LastElementOverflowPx float64 `yaml:"last_element_overflow_px" validate:"gte=0"`
		OrphanMinWords        int     `yaml:"orphan_min_words" validate:"min=1"`
	}

	LayoutConfig struct {
		Mode     LayoutMode   `yaml:"mode" validate:"gte=0,lte=1"`
		Device   PageGeometry `yaml:"device"`
		Document PageGeometry `yaml:"document"`
		// CSS declarations applied to body text in the measurement probe,
		// e.g. "font-size: 18px; line-height: 1.6"
		BodyStyle string    `yaml:"body_style" validate:"required"`
		FontPath  string    `yaml:"font_path,omitempty" sanitize:"assure_file_access" validate:"omitempty,filepath"`
		Fit       FitConfig `yaml:"fit"`
	}

	KaraokeConfig struct {
		MinSliceChars   int `yaml:"min_slice_chars" validate:"min=1"`
		FrameIntervalMs int `yaml:"frame_interval_ms" validate:"min=1"`
		MaxInitAttempts int `yaml:"max_init_attempts" validate:"min=1"`
	}

	HyphenationConfig struct {
		Enable        bool   `yaml:"enable"`
		DictionaryDir string `yaml:"dictionary_dir,omitempty" validate:"omitempty,dirpath|filepath"`
	}

	OutputConfig struct {
		NameTemplate  string `yaml:"name_template"`
		Transliterate bool   `yaml:"transliterate"`
	}

	PositionsConfig struct {
		Path string `yaml:"path,omitempty" sanitize:"path_clean,assure_dir_exists_for_file" validate:"omitempty,filepath"`
	}

	Config struct {
		Version     int               `yaml:"version" validate:"eq=1"`
		Layout      LayoutConfig      `yaml:"layout"`
		Karaoke     KaraokeConfig     `yaml:"karaoke"`
		Hyphenation HyphenationConfig `yaml:"hyphenation"`
		Output      OutputConfig      `yaml:"output"`
		Positions   PositionsConfig   `yaml:"positions"`
		Logging     LoggingConfig     `yaml:"logging"`
		Reporting   ReporterConfig    `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above, alternative is to use struct
	// field name and reflection which I want to avoid for now
	OutputNameTemplateFieldName = "name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(OutputNameTemplateFieldName),
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}

// Geometry returns the active page geometry for the configured layout mode.
func (l *LayoutConfig) Geometry() PageGeometry {
	if l.Mode == LayoutModeDocument {
		return l.Document
	}
	return l.Device
}
