package report

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"medinsight/api/internal/logger"
	"medinsight/api/internal/util"
)

// Stage names the step of the pipeline that produced a report.
type Stage string

const (
	StageDirect   Stage = "direct"
	StageFenced   Stage = "fenced"
	StageBrace    Stage = "brace"
	StageStripped Stage = "stripped"
	StageRepair   Stage = "repair"
	StageFallback Stage = "fallback"
)

// Repairer asks the model to rewrite raw output as strict JSON.
type Repairer interface {
	Repair(ctx context.Context, raw string) (string, error)
}

type RepairFunc func(ctx context.Context, raw string) (string, error)

func (f RepairFunc) Repair(ctx context.Context, raw string) (string, error) { return f(ctx, raw) }

// Normalizer turns raw model text into a ClinicalReport. It never fails.
type Normalizer struct {
	Repairer Repairer
	Log      *logger.Logger

	schema *jsonschema.Schema
}

func NewNormalizer(r Repairer, log *logger.Logger) *Normalizer {
	if log == nil {
		log = logger.Nop()
	}
	n := &Normalizer{Repairer: r, Log: log}
	schema, err := compileSchema()
	if err != nil {
		log.Error("report schema unavailable", "error", err)
	}
	n.schema = schema
	return n
}

func (n *Normalizer) Normalize(ctx context.Context, raw string, declared Modality, ocr OCRResult) ClinicalReport {
	r, _ := n.NormalizeWithStage(ctx, raw, declared, ocr)
	return r
}

func (n *Normalizer) NormalizeWithStage(ctx context.Context, raw string, declared Modality, ocr OCRResult) (ClinicalReport, Stage) {
	log := n.Log
	if log == nil {
		log = logger.Nop()
	}

	if p, stage := extract(raw); p.ok {
		return n.accept(log, p, stage, declared, ocr)
	}
	if p := parseObject(util.StripCodeFences(raw)); p.ok {
		return n.accept(log, p, StageStripped, declared, ocr)
	}

	if n.Repairer == nil {
		log.Warn("model output unparseable, no repairer", "len", len(raw))
		return Fallback(declared, ocr), StageFallback
	}
	fixed, err := n.Repairer.Repair(ctx, raw)
	if err != nil {
		log.Warn("repair call failed", "error", err)
		return Fallback(declared, ocr), StageFallback
	}
	if p, _ := extract(fixed); p.ok {
		return n.accept(log, p, StageRepair, declared, ocr)
	}
	log.Warn("repair output unparseable", "len", len(fixed))
	return Fallback(declared, ocr), StageFallback
}

func (n *Normalizer) accept(log *logger.Logger, p parsed, stage Stage, declared Modality, ocr OCRResult) (ClinicalReport, Stage) {
	if n.schema != nil {
		if err := n.schema.Validate(p.obj); err != nil {
			log.Debug("model output deviates from report schema", "stage", stage, "error", err)
		}
	}
	log.Debug("model output parsed", "stage", stage)
	return Validate(p.obj, declared, ocr), stage
}

// parsed is Parsed(obj) when ok, NotParsed otherwise.
type parsed struct {
	obj map[string]any
	ok  bool
}

var notParsed = parsed{}

// parseObject accepts only a JSON object.
func parseObject(s string) parsed {
	s = strings.TrimSpace(s)
	if s == "" {
		return notParsed
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return notParsed
	}
	return parsed{obj: obj, ok: true}
}

var fencedBlock = regexp.MustCompile("(?s)```(?:[jJ][sS][oO][nN])?\\s*(.*?)\\s*```")

// extract runs the direct, fenced and brace-span stages in order.
func extract(raw string) (parsed, Stage) {
	text := strings.TrimSpace(raw)
	if p := parseObject(text); p.ok {
		return p, StageDirect
	}
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		if p := parseObject(m[1]); p.ok {
			return p, StageFenced
		}
		return notParsed, ""
	}
	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		if p := parseObject(text[start : end+1]); p.ok {
			return p, StageBrace
		}
	}
	return notParsed, ""
}

// ExtractObject runs the direct, fenced and brace-span stages on raw.
func ExtractObject(raw string) (map[string]any, bool) {
	p, _ := extract(raw)
	return p.obj, p.ok
}
