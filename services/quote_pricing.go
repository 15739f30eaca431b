// Package services provides the pricing arithmetic, synthetic-line
// reconciliation and exports for project quotes.
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"projets/formula"
)

// CommissionRate is the agency commission applied on top of regular lines
// and the project-management fee.
const CommissionRate = 0.15

const (
	ManagementDesignation = "Gestion de projet"
	CommissionDesignation = "Commission agence"

	// IDs of the synthetic lines inside a position.
	ManagementLineID = "PM"
	CommissionLineID = "CA"
)

var (
	ErrLineNotFound     = errors.New("quote line not found")
	ErrSyntheticLine    = errors.New("synthetic lines are computed automatically and cannot be edited")
	ErrPositionNotFound = errors.New("position not found")
)

// PricingLine is a single quote line. ID is unique within its position and
// is the key used in reference tokens. PrixUnitAchat, Quantite and Coeff may
// be formulas; every other amount is derived by CalcLine.
type PricingLine struct {
	ID                  string             `json:"id"`
	RecordID            string             `json:"recordId,omitempty"`
	Designation         string             `json:"designation"`
	PrixUnitAchat       formula.FieldValue `json:"prixUnitAchat"`
	Quantite            formula.FieldValue `json:"quantite"`
	Coeff               formula.FieldValue `json:"coeff"`
	TotalAchat          float64            `json:"totalAchat"`
	PVente              float64            `json:"pVente"`
	PUnitaire           float64            `json:"pUnitaire"`
	Marge               float64            `json:"marge"`
	IsProjectManagement bool               `json:"isProjectManagement"`
	IsCommissionAgence  bool               `json:"isCommissionAgence"`
}

// IsSynthetic reports whether the line is computed from the other lines.
func (l PricingLine) IsSynthetic() bool {
	return l.IsProjectManagement || l.IsCommissionAgence
}

// Position groups the quote lines of one billable unit. ID is the key used
// in reference tokens (e.g. "pos1"); RecordID is the storage identifier.
type Position struct {
	ID                          string        `json:"id"`
	RecordID                    string        `json:"recordId,omitempty"`
	Name                        string        `json:"name"`
	Quantite                    float64       `json:"quantite"`
	ProjectManagementPercentage float64       `json:"projectManagementPercentage"`
	Lines                       []PricingLine `json:"lines"`
}

// Project is a quote made of positions.
type Project struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	ClientName      string     `json:"clientName"`
	ReferenceNumber string     `json:"referenceNumber"`
	Status          string     `json:"status"`
	Positions       []Position `json:"positions"`
}

// LineAmounts holds the derived amounts of a quote line.
type LineAmounts struct {
	TotalAchat float64
	PVente     float64
	PUnitaire  float64
	Marge      float64 // percent of the selling price
}

// CalcLineAmounts derives the line amounts from unit purchase price,
// quantity and markup coefficient.
func CalcLineAmounts(prixUnitAchat, quantite, coeff float64) LineAmounts {
	totalAchat := prixUnitAchat * quantite
	pVente := totalAchat * coeff
	var a LineAmounts
	a.TotalAchat = totalAchat
	a.PVente = pVente
	if quantite != 0 {
		a.PUnitaire = pVente / quantite
	}
	if pVente != 0 {
		a.Marge = (pVente - totalAchat) / pVente * 100
	}
	return a
}

// CalcLine returns the line with its derived amounts recomputed from the
// current values of its input fields.
func CalcLine(l PricingLine) PricingLine {
	a := CalcLineAmounts(l.PrixUnitAchat.Float(), l.Quantite.Float(), l.Coeff.Float())
	l.TotalAchat = a.TotalAchat
	l.PVente = a.PVente
	l.PUnitaire = a.PUnitaire
	l.Marge = a.Marge
	return l
}

// NewQuoteLine builds a regular line from literal values. An ID is
// generated when none is given.
func NewQuoteLine(id, designation string, prixUnitAchat, quantite, coeff float64) PricingLine {
	if id == "" {
		id = NewLineID()
	}
	return CalcLine(PricingLine{
		ID:            id,
		Designation:   designation,
		PrixUnitAchat: formula.NumberValue(prixUnitAchat),
		Quantite:      formula.NumberValue(quantite),
		Coeff:         formula.NumberValue(coeff),
	})
}

// NewLineID returns a short identifier usable inside reference tokens.
func NewLineID() string {
	return "L" + uuid.NewString()[:8]
}

func syntheticLine(id, designation string, amount float64) PricingLine {
	l := PricingLine{
		ID:            id,
		Designation:   designation,
		PrixUnitAchat: formula.NumberValue(amount),
		Quantite:      formula.NumberValue(1),
		Coeff:         formula.NumberValue(1),
	}
	return CalcLine(l)
}

// sumPVente adds selling prices with decimal arithmetic so repeated
// reconciliation does not accumulate float drift.
func sumPVente(lines []PricingLine) float64 {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(decimal.NewFromFloat(l.PVente))
	}
	return total.InexactFloat64()
}

// ReconcileSyntheticLines returns a copy of the position whose regular lines
// come first, followed by exactly one project-management line and one
// agency-commission line once at least one regular line exists. The
// management line is computed from the regular lines only and the commission
// from regular lines plus management. Calling it twice yields the same
// position.
func ReconcileSyntheticLines(p Position) Position {
	var regular []PricingLine
	var management, commission *PricingLine

	for _, l := range p.Lines {
		switch {
		case l.IsProjectManagement:
			if management == nil {
				m := l
				management = &m
			}
		case l.IsCommissionAgence:
			if commission == nil {
				c := l
				commission = &c
			}
		default:
			regular = append(regular, CalcLine(l))
		}
	}

	if len(regular) > 0 {
		if management == nil {
			m := PricingLine{ID: ManagementLineID, Designation: ManagementDesignation, IsProjectManagement: true}
			management = &m
		}
		if commission == nil {
			c := PricingLine{ID: CommissionLineID, Designation: CommissionDesignation, IsCommissionAgence: true}
			commission = &c
		}
	}

	regularVente := sumPVente(regular)
	lines := make([]PricingLine, 0, len(regular)+2)
	lines = append(lines, regular...)

	var managementVente float64
	if management != nil {
		amount := decimal.NewFromFloat(regularVente).
			Mul(decimal.NewFromFloat(p.ProjectManagementPercentage)).
			Div(decimal.NewFromInt(100)).
			InexactFloat64()
		m := syntheticLine(management.ID, management.Designation, amount)
		m.RecordID = management.RecordID
		m.IsProjectManagement = true
		managementVente = m.PVente
		lines = append(lines, m)
	}
	if commission != nil {
		amount := decimal.NewFromFloat(regularVente).
			Add(decimal.NewFromFloat(managementVente)).
			Mul(decimal.NewFromFloat(CommissionRate)).
			InexactFloat64()
		c := syntheticLine(commission.ID, commission.Designation, amount)
		c.RecordID = commission.RecordID
		c.IsCommissionAgence = true
		lines = append(lines, c)
	}

	p.Lines = lines
	return p
}

// AddQuoteLine appends a regular line and reconciles the synthetic lines.
func AddQuoteLine(p Position, line PricingLine) (Position, error) {
	if line.IsSynthetic() {
		return p, ErrSyntheticLine
	}
	if line.ID == "" {
		line.ID = NewLineID()
	}
	if line.ID == ManagementLineID || line.ID == CommissionLineID {
		return p, fmt.Errorf("quote line id %q is reserved", line.ID)
	}
	for _, l := range p.Lines {
		if l.ID == line.ID {
			return p, fmt.Errorf("quote line %q already exists in position %q", line.ID, p.ID)
		}
	}
	lines := make([]PricingLine, 0, len(p.Lines)+1)
	lines = append(lines, p.Lines...)
	p.Lines = append(lines, CalcLine(line))
	return ReconcileSyntheticLines(p), nil
}

// UpdateQuoteLine applies update to the regular line with the given ID and
// reconciles the synthetic lines.
func UpdateQuoteLine(p Position, lineID string, update func(PricingLine) PricingLine) (Position, error) {
	idx := indexOfLine(p.Lines, lineID)
	if idx < 0 {
		return p, fmt.Errorf("%w: %s", ErrLineNotFound, lineID)
	}
	if p.Lines[idx].IsSynthetic() {
		return p, ErrSyntheticLine
	}
	updated := update(p.Lines[idx])
	updated.ID = lineID
	updated.IsProjectManagement = false
	updated.IsCommissionAgence = false

	lines := make([]PricingLine, len(p.Lines))
	copy(lines, p.Lines)
	lines[idx] = CalcLine(updated)
	p.Lines = lines
	return ReconcileSyntheticLines(p), nil
}

// DeleteQuoteLine removes a regular line. Synthetic lines are kept even when
// no regular line remains; they then fall to zero.
func DeleteQuoteLine(p Position, lineID string) (Position, error) {
	idx := indexOfLine(p.Lines, lineID)
	if idx < 0 {
		return p, fmt.Errorf("%w: %s", ErrLineNotFound, lineID)
	}
	if p.Lines[idx].IsSynthetic() {
		return p, ErrSyntheticLine
	}
	lines := make([]PricingLine, 0, len(p.Lines)-1)
	lines = append(lines, p.Lines[:idx]...)
	lines = append(lines, p.Lines[idx+1:]...)
	p.Lines = lines
	return ReconcileSyntheticLines(p), nil
}

// SetManagementPercentage changes the project-management percentage of a
// position and recomputes its synthetic lines.
func SetManagementPercentage(p Position, pct float64) Position {
	p.ProjectManagementPercentage = pct
	return ReconcileSyntheticLines(p)
}

// RegularLines returns the lines that are neither management nor commission.
func RegularLines(lines []PricingLine) []PricingLine {
	var out []PricingLine
	for _, l := range lines {
		if !l.IsSynthetic() {
			out = append(out, l)
		}
	}
	return out
}

// FindPosition returns the index of the position with the given ID, or -1.
func FindPosition(p Project, positionID string) int {
	for i, pos := range p.Positions {
		if pos.ID == positionID {
			return i
		}
	}
	return -1
}

func indexOfLine(lines []PricingLine, id string) int {
	for i, l := range lines {
		if l.ID == id {
			return i
		}
	}
	return -1
}
