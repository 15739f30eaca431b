// Package templates renders the HTML pages and HTMX fragments of the quote
// editor. Components are written in the .templ files; the *_templ.go files
// hold their Go rendering.
package templates

import (
	"net/url"
	"slices"
	"strings"

	"projets/formula"
)

// ProjectListItem is one row of the project list.
type ProjectListItem struct {
	ID              string
	Name            string
	ClientName      string
	ReferenceNumber string
	Status          string
	PositionCount   int
	TotalVente      string
}

type ProjectListData struct {
	Items  []ProjectListItem
	Search string
}

type ProjectCreateData struct {
	Name                        string
	ClientName                  string
	Status                      string
	ProjectManagementPercentage string
	StatusOptions               []string
	Errors                      map[string]string
}

// LineView is a quote line ready for display. Input fields hold the text a
// user edits: a number or "=" followed by a formula.
type LineView struct {
	ID            string
	Designation   string
	PrixUnitAchat string
	Quantite      string
	Coeff         string
	TotalAchat    string
	PVente        string
	PUnitaire     string
	Marge         string
	Synthetic     bool
	// Errors maps an input field name to its formula error.
	Errors map[string]string
}

type PositionView struct {
	ID                          string
	Name                        string
	Quantite                    string
	ProjectManagementPercentage string
	Lines                       []LineView
	TotalAchat                  string
	TotalVente                  string
}

type QuoteViewData struct {
	ProjectID       string
	Name            string
	ClientName      string
	ReferenceNumber string
	Status          string
	Positions       []PositionView
	TotalAchat      string
	TotalVente      string
	Marge           string
	MargePercent    string
	Management      string
	Commission      string
}

// StatusLabel returns the display label of a project status.
func StatusLabel(status string) string {
	switch status {
	case "devis":
		return "Devis"
	case "en_cours":
		return "En cours"
	case "livre":
		return "Livré"
	case "facture":
		return "Facturé"
	}
	return status
}

// lineInput is one editable cell of a line row.
type lineInput struct {
	Name       string
	Raw        string
	Error      string
	FeedbackID string
}

func lineInputs(positionID string, l LineView) []lineInput {
	inputs := []lineInput{
		{Name: "prixUnitAchat", Raw: l.PrixUnitAchat},
		{Name: "quantite", Raw: l.Quantite},
		{Name: "coeff", Raw: l.Coeff},
	}
	for i := range inputs {
		inputs[i].Error = l.Errors[inputs[i].Name]
		inputs[i].FeedbackID = "fb-" + positionID + "-" + l.ID + "-" + inputs[i].Name
	}
	return inputs
}

func positionURL(projectID, positionID string) string {
	return "/projects/" + projectID + "/positions/" + positionID
}

func lineURL(projectID, positionID, lineID string) string {
	return positionURL(projectID, positionID) + "/lines/" + lineID
}

// validateURL is the live validation endpoint of one line input.
func validateURL(projectID, positionID, lineID, field string) string {
	path := formula.Token(formula.ScopeLigne, positionID+"_"+lineID, field)
	return "/projects/" + projectID + "/formulas/validate?field=" + url.QueryEscape(field) + "&path=" + url.QueryEscape(path)
}

func lineRowClass(l LineView) string {
	if l.Synthetic {
		return "line line-synthetic"
	}
	return "line"
}

func cyclePath(cycle []string) string {
	return strings.Join(cycle, " → ")
}

// invalidPaths lists the invalid fields of a report in path order.
func invalidPaths(report formula.SaveReport) []string {
	paths := make([]string, 0, len(report.Fields))
	for path, res := range report.Fields {
		if !res.IsValid {
			paths = append(paths, path)
		}
	}
	slices.Sort(paths)
	return paths
}
