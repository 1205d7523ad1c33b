package services

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"sort"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/vitalwatch/flagreview-backend/internal/pkg/logger"
	"github.com/vitalwatch/flagreview-backend/internal/types"
)

// ChartService renders the metrics page charts as PNG bytes, so the page
// can embed them as data URIs without any client-side charting.
type ChartService interface {
	LabelCountsPNG(tpCount, fpCount int) ([]byte, error)
	LabelDistributionPNG(dist map[string]map[types.Label]int) ([]byte, error)
}

type chartService struct {
	log      *logger.Logger
	fontFace font.Face
}

var (
	tpBarColor = color.NRGBA{R: 0x2e, G: 0x8b, B: 0x57, A: 0xff}
	fpBarColor = color.NRGBA{R: 0xcd, G: 0x5c, B: 0x5c, A: 0xff}
)

// NewChartService loads an optional truetype face from fontPath; with an
// empty path it falls back to the built-in bitmap face.
func NewChartService(baseLog *logger.Logger, fontPath string) (ChartService, error) {
	serviceLog := baseLog.With("service", "ChartService")

	face := font.Face(basicfont.Face7x13)
	if fontPath != "" {
		loaded, err := loadFontFace(fontPath, 13)
		if err != nil {
			return nil, fmt.Errorf("could not load chart font: %w", err)
		}
		serviceLog.Info("Chart font loaded", "font", fontPath)
		face = loaded
	}
	return &chartService{log: serviceLog, fontFace: face}, nil
}

func (s *chartService) LabelCountsPNG(tpCount, fpCount int) ([]byte, error) {
	return s.renderBars("Label Counts", []barGroup{
		{label: "True Positive", bars: []bar{{value: tpCount, fill: tpBarColor}}},
		{label: "False Positive", bars: []bar{{value: fpCount, fill: fpBarColor}}},
	})
}

func (s *chartService) LabelDistributionPNG(dist map[string]map[types.Label]int) ([]byte, error) {
	flagTypes := make([]string, 0, len(dist))
	for flagType := range dist {
		flagTypes = append(flagTypes, flagType)
	}
	sort.Strings(flagTypes)

	groups := make([]barGroup, 0, len(flagTypes))
	for _, flagType := range flagTypes {
		groups = append(groups, barGroup{
			label: flagType,
			bars: []bar{
				{value: dist[flagType][types.LabelTruePositive], fill: tpBarColor},
				{value: dist[flagType][types.LabelFalsePositive], fill: fpBarColor},
			},
		})
	}
	return s.renderBars("Label Distribution by Flag Type (TP / FP)", groups)
}

type bar struct {
	value int
	fill  color.NRGBA
}

type barGroup struct {
	label string
	bars  []bar
}

func (s *chartService) renderBars(title string, groups []barGroup) ([]byte, error) {
	const (
		width     = 640
		height    = 400
		marginX   = 48
		marginTop = 48
		marginBot = 56
		barGap    = 8
		groupGap  = 32
	)

	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(s.fontFace)

	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(title, width/2, marginTop/2, 0.5, 0.5)

	maxValue := 1
	totalBars := 0
	for _, g := range groups {
		totalBars += len(g.bars)
		for _, b := range g.bars {
			if b.value > maxValue {
				maxValue = b.value
			}
		}
	}
	if len(groups) == 0 || totalBars == 0 {
		var buf bytes.Buffer
		if err := dc.EncodePNG(&buf); err != nil {
			return nil, fmt.Errorf("failed to encode PNG: %w", err)
		}
		return buf.Bytes(), nil
	}

	plotWidth := float64(width - 2*marginX)
	plotHeight := float64(height - marginTop - marginBot)
	baseline := float64(height - marginBot)

	gapTotal := float64(groupGap*(len(groups)-1) + barGap*(totalBars-len(groups)))
	barWidth := (plotWidth - gapTotal) / float64(totalBars)
	if barWidth < 4 {
		barWidth = 4
	}

	x := float64(marginX)
	for _, g := range groups {
		groupStart := x
		for i, b := range g.bars {
			if i > 0 {
				x += barGap
			}
			barHeight := plotHeight * float64(b.value) / float64(maxValue)
			dc.SetColor(b.fill)
			dc.DrawRectangle(x, baseline-barHeight, barWidth, barHeight)
			dc.Fill()

			dc.SetRGB(0, 0, 0)
			dc.DrawStringAnchored(fmt.Sprintf("%d", b.value), x+barWidth/2, baseline-barHeight-10, 0.5, 0.5)
			x += barWidth
		}
		groupWidth := x - groupStart
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(g.label, groupStart+groupWidth/2, baseline+16, 0.5, 0.5)
		x += groupGap
	}

	// Axis line
	dc.SetRGB(0.2, 0.2, 0.2)
	dc.SetLineWidth(1)
	dc.DrawLine(marginX, baseline, width-marginX, baseline)
	dc.Stroke()

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func loadFontFace(fontPath string, size float64) (font.Face, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	return truetype.NewFace(parsedFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	}), nil
}
