package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	BoardSize  float64 `yaml:"board_size"`
	ItemWidth  float64 `yaml:"item_width"`
	ItemHeight float64 `yaml:"item_height"`

	Zoom Zoom `yaml:"zoom"`

	ClickThresholdPx float64 `yaml:"click_threshold_px"`
	CommitDebounceMs int     `yaml:"commit_debounce_ms"`
}

type Zoom struct {
	ScaleMin    float64 `yaml:"scale_min"`
	ScaleMax    float64 `yaml:"scale_max"`
	Step        float64 `yaml:"step"`
	ResetMs     int     `yaml:"reset_ms"`
	WheelFactor float64 `yaml:"wheel_factor"`
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.fillDefaults()
	if err := t.validate(); err != nil {
		return t, err
	}
	return t, nil
}

func Defaults() Tuning {
	var t Tuning
	t.fillDefaults()
	return t
}

func (t *Tuning) fillDefaults() {
	if t.BoardSize <= 0 {
		t.BoardSize = 10000
	}
	if t.ItemWidth <= 0 {
		t.ItemWidth = 260
	}
	if t.ItemHeight <= 0 {
		t.ItemHeight = 180
	}
	if t.Zoom.ScaleMin <= 0 {
		t.Zoom.ScaleMin = 0.2
	}
	if t.Zoom.ScaleMax <= 0 {
		t.Zoom.ScaleMax = 3.0
	}
	if t.Zoom.Step <= 0 {
		t.Zoom.Step = 0.1
	}
	if t.Zoom.ResetMs <= 0 {
		t.Zoom.ResetMs = 250
	}
	if t.Zoom.WheelFactor <= 0 {
		t.Zoom.WheelFactor = 0.001
	}
	if t.ClickThresholdPx <= 0 {
		t.ClickThresholdPx = 5
	}
	if t.CommitDebounceMs < 100 {
		t.CommitDebounceMs = 120
	}
}

func (t *Tuning) validate() error {
	if t.Zoom.ScaleMin >= t.Zoom.ScaleMax {
		return fmt.Errorf("tuning.yaml: zoom scale_min %v >= scale_max %v", t.Zoom.ScaleMin, t.Zoom.ScaleMax)
	}
	if t.ItemWidth >= t.BoardSize || t.ItemHeight >= t.BoardSize {
		return fmt.Errorf("tuning.yaml: item footprint exceeds board size")
	}
	return nil
}
