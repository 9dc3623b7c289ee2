package sparql

import (
	"context"
	"fmt"
	"strings"
)

const prefixes = `PREFIX : <https://purl.org/wiser#>
PREFIX wiser: <https://purl.org/wiser#>
`

const activityLabelsQuery = prefixes + `
SELECT DISTINCT ?src ?srcLabel
WHERE {
	?src a wiser:BActivity.
	?src (wiser:pathToNameObject/wiser:name) ?srcLabel.
}`

const technosphereQuery = prefixes + `
SELECT DISTINCT ?src ?parentElement ?parent ?childElement ?child ?location ?value ?unit ?parentLocation ?parentUnit
WHERE {
	VALUES(?src){( <%s> )}
	?src (wiser:hasChildActivitiy)* ?parentElement.
	?parentElement (wiser:hasChildActivitiy) ?childElement.
	?parentElement (wiser:pathToNameObject/wiser:name) ?parent.
	?parentElement wiser:hasExchange ?exchange.
	?exchange wiser:isReferenceExchangeOf ?childElement.
	OPTIONAL { ?exchange wiser:hasMeanValue ?value. }
	OPTIONAL { ?childElement (wiser:pathToUnitObject/wiser:hasUnit) ?unit. }
	OPTIONAL { ?childElement (wiser:pathToGeographyObject/wiser:hasGeography) ?location. }
	?childElement (wiser:pathToNameObject/wiser:name) ?child.
	OPTIONAL { ?parentElement (wiser:pathToGeographyObject/wiser:hasGeography) ?parentLocation. }
	OPTIONAL { ?parentElement (wiser:pathToUnitObject/wiser:hasUnit) ?parentUnit. }
	FILTER(?parentElement != ?childElement)
}`

const biosphereQuery = prefixes + `
SELECT DISTINCT ?src ?parentElement ?srcLabel ?exchangeName ?unit ?value ?category ?subCategory
WHERE {
	VALUES(?src){( <%s> )}
	?src (wiser:hasChildActivitiy)* ?parentElement.
	?parentElement (wiser:pathToNameObject/wiser:name) ?srcLabel.
	?parentElement wiser:hasExchange ?exchange.
	?exchange a :BBiosphereExchange.
	?exchange (wiser:pathToExchangeNameObject/wiser:name) ?exchangeName.
	?exchange (wiser:pathToExchangeUnitObject/wiser:hasUnit) ?unit.
	?exchange wiser:hasMeanValue ?value.
	?exchange wiser:category ?category.
	?exchange wiser:subCategory ?subCategory.
	FILTER(CONTAINS(LCASE(STR(?exchangeName)), "carbon dioxide"))
}`

// ActivityLabel is an activity IRI with its display name.
type ActivityLabel struct {
	Src   string `json:"src"`
	Label string `json:"label"`
}

// TechnosphereRow links a parent activity to a child activity it consumes.
type TechnosphereRow struct {
	Parent         string
	ParentName     string
	ParentLocation string
	ParentUnit     string
	Child          string
	ChildName      string
	Location       string
	Unit           string
	Value          string // empty when the exchange has no mean value
}

// BiosphereRow is a carbon dioxide flow emitted by an activity.
type BiosphereRow struct {
	Parent       string
	ParentName   string
	ExchangeName string
	Unit         string
	Value        string
	Category     string
	SubCategory  string
}

// checkIRI rejects strings that cannot be placed between angle brackets.
func checkIRI(iri string) error {
	if iri == "" || strings.ContainsAny(iri, "<>\"{}|^`\\ \t\n") {
		return fmt.Errorf("sparql: invalid IRI %q", iri)
	}
	return nil
}

// ActivityLabels lists all activities with their names.
func (c *Client) ActivityLabels(ctx context.Context) ([]ActivityLabel, error) {
	res, err := c.Select(ctx, activityLabelsQuery)
	if err != nil {
		return nil, err
	}
	labels := make([]ActivityLabel, 0, len(res.Results.Bindings))
	for _, b := range res.Results.Bindings {
		labels = append(labels, ActivityLabel{Src: b.Value("src"), Label: b.Value("srcLabel")})
	}
	return labels, nil
}

// Technosphere returns the parent/child links in the sub-tree of src.
func (c *Client) Technosphere(ctx context.Context, src string) ([]TechnosphereRow, error) {
	if err := checkIRI(src); err != nil {
		return nil, err
	}
	res, err := c.Select(ctx, fmt.Sprintf(technosphereQuery, src))
	if err != nil {
		return nil, err
	}
	rows := make([]TechnosphereRow, 0, len(res.Results.Bindings))
	for _, b := range res.Results.Bindings {
		rows = append(rows, TechnosphereRow{
			Parent:         b.Value("parentElement"),
			ParentName:     b.Value("parent"),
			ParentLocation: b.Value("parentLocation"),
			ParentUnit:     b.Value("parentUnit"),
			Child:          b.Value("childElement"),
			ChildName:      b.Value("child"),
			Location:       b.Value("location"),
			Unit:           b.Value("unit"),
			Value:          b.Value("value"),
		})
	}
	return rows, nil
}

// Biosphere returns the carbon dioxide flows in the sub-tree of src.
func (c *Client) Biosphere(ctx context.Context, src string) ([]BiosphereRow, error) {
	if err := checkIRI(src); err != nil {
		return nil, err
	}
	res, err := c.Select(ctx, fmt.Sprintf(biosphereQuery, src))
	if err != nil {
		return nil, err
	}
	rows := make([]BiosphereRow, 0, len(res.Results.Bindings))
	for _, b := range res.Results.Bindings {
		rows = append(rows, BiosphereRow{
			Parent:       b.Value("parentElement"),
			ParentName:   b.Value("srcLabel"),
			ExchangeName: b.Value("exchangeName"),
			Unit:         b.Value("unit"),
			Value:        b.Value("value"),
			Category:     b.Value("category"),
			SubCategory:  b.Value("subCategory"),
		})
	}
	return rows, nil
}
