// Package textfit decides how replacement text is drawn so that it fits the
// region it replaces: keeping the original filler padding, trimming it, or
// shrinking the font.
package textfit

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	pherrors "github.com/a3tai/pdf-placeholder/internal/errors"
	"github.com/a3tai/pdf-placeholder/internal/placeholder"
)

// Strategy names the rung of the fitting ladder a plan landed on
type Strategy string

const (
	StrategyKeepOriginal Strategy = "keep_original"
	StrategyReduceFiller Strategy = "reduce_filler"
	StrategyScaleFont    Strategy = "scale_font"
)

const (
	// DecoratedMinScale bounds shrinking for padded tokens
	DecoratedMinScale = 0.65
	// FreeFormMinScale bounds shrinking for plain regions
	FreeFormMinScale = 0.7
	// MinFontSize is the absolute floor for scaled text
	MinFontSize = 8.0

	OverflowWarning = "text may overflow region"
)

// WidthFunc measures text at a font size in document units
type WidthFunc func(text string, size float64) (float64, error)

// Instruction pairs a region with the text it should receive
type Instruction struct {
	Page    int                `json:"page"`
	Region  placeholder.Region `json:"region"`
	OldText string             `json:"old_text"`
	NewText string             `json:"new_text"`
}

// Plan is how an instruction will be rendered
type Plan struct {
	RenderedText      string   `json:"rendered_text"`
	EffectiveFontSize float64  `json:"effective_font_size"`
	Strategy          Strategy `json:"strategy"`
	FitsWithinRegion  bool     `json:"fits_within_region"`
	Warning           string   `json:"warning,omitempty"`
	// FillerCount is the padding kept per side, zero for plain regions
	FillerCount int `json:"filler_count"`
}

// CreatePlan computes the plan for in. It is deterministic and only fails
// when widthOf does.
func CreatePlan(in Instruction, widthOf WidthFunc) (Plan, error) {
	if widthOf == nil {
		return Plan{}, fmt.Errorf("no width function")
	}
	base := in.Region.FontSize
	if base <= 0 {
		base = placeholder.FontSizeForHeight(in.Region.Height)
	}

	var (
		plan Plan
		err  error
	)
	if deco, ok := ParseDecoration(in.OldText); ok && deco.Count > 0 {
		plan, err = planDecorated(in, deco, base, widthOf)
	} else {
		plan, err = planFreeForm(in, base, widthOf)
	}
	if err != nil {
		return Plan{}, pherrors.Wrap(pherrors.ErrorTypeGlyphRenderFailure, "text cannot be measured", err).
			WithPage(in.Page).
			WithPositionIndex(in.Region.PositionIndex)
	}
	return plan, nil
}

func planDecorated(in Instruction, deco Decoration, base float64, widthOf WidthFunc) (Plan, error) {
	region := in.Region.Width
	filler := string(deco.Filler)

	textW, err := widthOf(in.NewText, base)
	if err != nil {
		return Plan{}, err
	}
	fillerW, err := widthOf(filler, base)
	if err != nil {
		return Plan{}, err
	}

	if textW <= region-float64(deco.Count)*2*fillerW {
		return Plan{
			RenderedText:      deco.Pad(in.NewText, deco.Count),
			EffectiveFontSize: base,
			Strategy:          StrategyKeepOriginal,
			FitsWithinRegion:  true,
			FillerCount:       deco.Count,
		}, nil
	}

	for n := deco.Count - 1; n >= 1; n-- {
		if textW <= region-float64(n)*2*fillerW {
			return Plan{
				RenderedText:      deco.Pad(in.NewText, n),
				EffectiveFontSize: base,
				Strategy:          StrategyReduceFiller,
				FitsWithinRegion:  true,
				FillerCount:       n,
			}, nil
		}
	}

	available := region - 2*fillerW
	scale := 1.0
	if textW > 0 {
		scale = available / textW
	}
	eff := scaledSize(base, math.Max(DecoratedMinScale, scale))

	plan := Plan{
		RenderedText:      deco.Pad(in.NewText, 1),
		EffectiveFontSize: eff,
		Strategy:          StrategyScaleFont,
		FillerCount:       1,
	}
	total, err := widthOf(plan.RenderedText, eff)
	if err != nil {
		return Plan{}, err
	}
	plan.FitsWithinRegion = total <= region
	if !plan.FitsWithinRegion {
		plan.Warning = OverflowWarning
	}
	return plan, nil
}

func planFreeForm(in Instruction, base float64, widthOf WidthFunc) (Plan, error) {
	region := in.Region.Width

	textW, err := widthOf(in.NewText, base)
	if err != nil {
		return Plan{}, err
	}
	if textW <= region {
		return Plan{
			RenderedText:      in.NewText,
			EffectiveFontSize: base,
			Strategy:          StrategyKeepOriginal,
			FitsWithinRegion:  true,
		}, nil
	}

	eff := scaledSize(base, math.Max(FreeFormMinScale, region/textW))
	plan := Plan{
		RenderedText:      in.NewText,
		EffectiveFontSize: eff,
		Strategy:          StrategyScaleFont,
	}
	scaledW, err := widthOf(in.NewText, eff)
	if err != nil {
		return Plan{}, err
	}
	plan.FitsWithinRegion = scaledW <= region
	if !plan.FitsWithinRegion {
		plan.Warning = OverflowWarning
	}
	return plan, nil
}

// scaledSize is max(MinFontSize, base*scale) capped at base. The plain
// floor would grow text in regions whose base size is already under
// MinFontSize, so those keep their own size instead.
func scaledSize(base, scale float64) float64 {
	return math.Min(base, math.Max(MinFontSize, base*scale))
}

// Planner wraps CreatePlan with a fixed width function and logging
type Planner struct {
	widthOf WidthFunc
	log     logrus.FieldLogger
}

// NewPlanner creates a Planner. A nil logger uses the standard logger.
func NewPlanner(widthOf WidthFunc, log logrus.FieldLogger) *Planner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Planner{widthOf: widthOf, log: log}
}

// Plan computes the plan for in
func (p *Planner) Plan(in Instruction) (Plan, error) {
	plan, err := CreatePlan(in, p.widthOf)
	if err != nil {
		return Plan{}, err
	}
	if plan.Warning != "" {
		p.log.WithFields(logrus.Fields{
			"page":           in.Page,
			"position_index": in.Region.PositionIndex,
			"strategy":       plan.Strategy,
			"font_size":      plan.EffectiveFontSize,
		}).Info("Replacement may overflow its region")
	}
	return plan, nil
}
