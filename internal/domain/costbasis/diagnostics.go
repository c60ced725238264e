package costbasis

import (
	"fmt"
	"time"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/types"
)

// Severity of a diagnostic.
type Severity string

const (
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// Diagnostic codes.
const (
	CodeInsufficientLots   = "INSUFFICIENT_LOTS"
	CodeInvalidAcquisition = "INVALID_ACQUISITION"
	CodeInvalidDisposal    = "INVALID_DISPOSAL"
)

// Diagnostic describes a degraded but tolerated condition found during replay.
// An unmatched disposal quantity is valued at zero cost basis, which inflates
// the gain; the diagnostic lets callers surface that.
type Diagnostic struct {
	Severity    Severity       `json:"severity"`
	Code        string         `json:"code"`
	AssetSymbol string         `json:"assetSymbol"`
	Reference   string         `json:"reference,omitempty"`
	Date        time.Time      `json:"date"`
	Requested   types.Quantity `json:"requested"`
	Shortfall   types.Quantity `json:"shortfall"`
	Message     string         `json:"message"`
}

// Diagnostics is an ordered list of diagnostics.
type Diagnostics []Diagnostic

// HasWarnings reports whether any diagnostic is a warning.
func (d Diagnostics) HasWarnings() bool {
	for _, x := range d {
		if x.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// ByCode returns diagnostics with the given code.
func (d Diagnostics) ByCode(code string) Diagnostics {
	var out Diagnostics
	for _, x := range d {
		if x.Code == code {
			out = append(out, x)
		}
	}
	return out
}

func insufficientLots(asset string, d Disposal, shortfall types.Quantity) Diagnostic {
	return Diagnostic{
		Severity:    SeverityWarning,
		Code:        CodeInsufficientLots,
		AssetSymbol: asset,
		Reference:   d.ID,
		Date:        d.Date,
		Requested:   d.Quantity,
		Shortfall:   shortfall,
		Message: fmt.Sprintf("insufficient lots for %s: %s of %s unmatched, valued at zero cost basis",
			asset, shortfall.String(), d.Quantity.String()),
	}
}

func invalidAcquisition(asset string, a Acquisition) Diagnostic {
	return Diagnostic{
		Severity:    SeverityWarning,
		Code:        CodeInvalidAcquisition,
		AssetSymbol: asset,
		Reference:   a.TxID,
		Date:        a.Date,
		Requested:   a.Quantity,
		Message:     fmt.Sprintf("acquisition of %s with non-positive quantity %s ignored", asset, a.Quantity.String()),
	}
}

func invalidDisposal(asset string, d Disposal) Diagnostic {
	return Diagnostic{
		Severity:    SeverityInfo,
		Code:        CodeInvalidDisposal,
		AssetSymbol: asset,
		Reference:   d.ID,
		Date:        d.Date,
		Requested:   d.Quantity,
		Message:     fmt.Sprintf("disposal of %s with non-positive quantity %s ignored", asset, d.Quantity.String()),
	}
}
