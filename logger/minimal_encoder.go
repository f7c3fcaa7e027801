package logger

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"
)

// Calm terminal palette for console output. Muted 256-color codes so the
// stream stays readable during long validation cycles.
const (
	colorFg       = "\x1b[38;5;223m" // soft cream, base text
	colorTime     = "\x1b[38;5;108m" // muted green, timestamps
	colorName     = "\x1b[38;5;109m" // soft blue, component names
	colorValue    = "\x1b[38;5;175m" // muted purple, field values
	colorBronze   = "\x1b[38;5;137m"
	colorSilver   = "\x1b[38;5;246m"
	colorGold     = "\x1b[38;5;178m"
	colorCritical = "\x1b[38;5;167m"
	colorHigh     = "\x1b[38;5;208m"
	colorMedium   = "\x1b[38;5;214m"
	colorLow      = "\x1b[38;5;109m"
	colorWarnFg   = "\x1b[38;5;214m"
	colorWarnBg   = "\x1b[48;5;58m"
	colorErrFg    = "\x1b[38;5;167m"
	colorErrBg    = "\x1b[48;5;88m"
)

// minimalEncoder implements a calm, compact console encoder.
// Format: "13:04:35  a.sweeper  alert escalated  dataset=orders severity=critical"
type minimalEncoder struct {
	zapcore.Encoder // Embed a base encoder for field serialization
	buf             *buffer.Buffer
}

func newMinimalEncoder() *minimalEncoder {
	// Base JSON encoder handles nested field serialization (internal use only)
	baseEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())

	return &minimalEncoder{
		Encoder: baseEncoder,
		buf:     buffer.NewPool().Get(),
	}
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	return &minimalEncoder{
		Encoder: enc.Encoder.Clone(),
		buf:     buffer.NewPool().Get(),
	}
}

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	final := buffer.NewPool().Get()

	final.AppendString(colorTime)
	final.AppendString(ent.Time.Format("15:04:05"))
	final.AppendString(colorReset)

	// Level: only show for WARN/ERROR with bold + background
	if ent.Level != zapcore.InfoLevel {
		final.AppendString("  ")
		final.AppendString(levelColorString(ent.Level))
	}

	// Component name (abbreviated) for visual grouping
	if ent.LoggerName != "" {
		final.AppendString("  ")
		final.AppendString(colorName)
		final.AppendString(abbreviateName(ent.LoggerName))
		final.AppendString(colorReset)
	}

	final.AppendString("  ")
	final.AppendString(colorFg)
	final.AppendString(ent.Message)
	final.AppendString(colorReset)

	if len(fields) > 0 {
		final.AppendString("  ")
		final.AppendString(renderFields(fields))
	}

	final.AppendString("\n")
	return final, nil
}

// levelColorString returns bold + colored + background for non-INFO levels
func levelColorString(level zapcore.Level) string {
	switch level {
	case zapcore.DebugLevel:
		return colorName + "DEBUG" + colorReset
	case zapcore.WarnLevel:
		return colorBold + colorWarnBg + colorWarnFg + "WARN" + colorReset
	case zapcore.ErrorLevel:
		return colorBold + colorErrBg + colorErrFg + "ERROR" + colorReset
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return colorBold + colorErrBg + colorErrFg + level.CapitalString() + colorReset
	default:
		return ""
	}
}

// abbreviateName shortens component names: alert.sweeper -> a.sweeper
func abbreviateName(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) > 1 && len(parts[0]) > 0 {
		return string(parts[0][0]) + "." + strings.Join(parts[1:], ".")
	}
	return name
}

// fieldValue extracts the value from a zap field, handling different field types
func fieldValue(field zapcore.Field) string {
	switch field.Type {
	case zapcore.StringType:
		return field.String
	case zapcore.BoolType:
		if field.Integer == 1 {
			return "true"
		}
		return "false"
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type,
		zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		return fmt.Sprintf("%d", field.Integer)
	case zapcore.Float64Type:
		return strconv.FormatFloat(math.Float64frombits(uint64(field.Integer)), 'g', -1, 64)
	case zapcore.Float32Type:
		return strconv.FormatFloat(float64(math.Float32frombits(uint32(field.Integer))), 'g', -1, 32)
	case zapcore.DurationType:
		return time.Duration(field.Integer).String()
	case zapcore.ErrorType:
		if field.Interface == nil {
			return ""
		}
		if err, ok := field.Interface.(error); ok {
			return err.Error()
		}
		return fmt.Sprintf("%v", field.Interface)
	default:
		if field.Interface != nil {
			return fmt.Sprintf("%v", field.Interface)
		}
		if field.String != "" {
			return field.String
		}
		return fmt.Sprintf("%d", field.Integer)
	}
}

// valueColor picks the color for a field value. Layer names and severity
// levels get their own colors so breaches stand out in a scrolling cycle log.
func valueColor(key, value string) string {
	switch key {
	case FieldLayer:
		switch value {
		case "bronze":
			return colorBronze
		case "silver":
			return colorSilver
		case "gold":
			return colorGold
		}
	case FieldSeverity:
		switch value {
		case "critical":
			return colorBold + colorCritical
		case "high":
			return colorHigh
		case "medium":
			return colorMedium
		case "low":
			return colorLow
		}
	case FieldError:
		return colorErrFg
	}
	return colorValue
}

// renderFields renders every structured field as key=value. Fields are never
// dropped; unknown keys fall back to the default value color.
func renderFields(fields []zapcore.Field) string {
	var parts []string
	for _, field := range fields {
		if field.Type == zapcore.SkipType {
			continue
		}
		val := fieldValue(field)
		if field.Type == zapcore.ErrorType && val == "" {
			continue
		}
		parts = append(parts, colorFg+field.Key+"="+colorReset+valueColor(field.Key, val)+val+colorReset)
	}
	return strings.Join(parts, " ")
}
