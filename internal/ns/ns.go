// Package ns holds the vocabulary IRIs used throughout skosd.
package ns

//spellchecker:words skosxl openskos dcterms vcard foaf xmlschema

// Namespace prefixes.
const (
	RDF      = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFS     = "http://www.w3.org/2000/01/rdf-schema#"
	OWL      = "http://www.w3.org/2002/07/owl#"
	XSD      = "http://www.w3.org/2001/XMLSchema#"
	SKOS     = "http://www.w3.org/2004/02/skos/core#"
	SKOSXL   = "http://www.w3.org/2008/05/skos-xl#"
	DCTerms  = "http://purl.org/dc/terms/"
	DC       = "http://purl.org/dc/elements/1.1/"
	FOAF     = "http://xmlns.com/foaf/0.1/"
	VCard    = "http://www.w3.org/2006/vcard/ns#"
	ORG      = "http://www.w3.org/ns/org#"
	OpenSKOS = "http://openskos.org/xmlns#"
)

// rdf, rdfs, owl, xsd
const (
	Type = RDF + "type"

	Label = RDFS + "label"

	ObjectProperty = OWL + "ObjectProperty"
	InverseOf      = OWL + "inverseOf"

	XSDString   = XSD + "string"
	XSDBoolean  = XSD + "boolean"
	XSDDateTime = XSD + "dateTime"
	XSDInteger  = XSD + "integer"
)

// skos
const (
	Concept       = SKOS + "Concept"
	ConceptScheme = SKOS + "ConceptScheme"
	Collection    = SKOS + "Collection"

	PrefLabel   = SKOS + "prefLabel"
	AltLabel    = SKOS + "altLabel"
	HiddenLabel = SKOS + "hiddenLabel"
	Notation    = SKOS + "notation"
	Definition  = SKOS + "definition"
	ScopeNote   = SKOS + "scopeNote"

	InScheme      = SKOS + "inScheme"
	HasTopConcept = SKOS + "hasTopConcept"
	TopConceptOf  = SKOS + "topConceptOf"
	Member        = SKOS + "member"

	Broader            = SKOS + "broader"
	Narrower           = SKOS + "narrower"
	Related            = SKOS + "related"
	BroaderTransitive  = SKOS + "broaderTransitive"
	NarrowerTransitive = SKOS + "narrowerTransitive"
	BroadMatch         = SKOS + "broadMatch"
	NarrowMatch        = SKOS + "narrowMatch"
	CloseMatch         = SKOS + "closeMatch"
	ExactMatch         = SKOS + "exactMatch"
	RelatedMatch       = SKOS + "relatedMatch"
	MappingRelation    = SKOS + "mappingRelation"
	SemanticRelation   = SKOS + "semanticRelation"
)

// skos-xl
const (
	XLLabel       = SKOSXL + "Label"
	XLPrefLabel   = SKOSXL + "prefLabel"
	XLAltLabel    = SKOSXL + "altLabel"
	XLHiddenLabel = SKOSXL + "hiddenLabel"
	LiteralForm   = SKOSXL + "literalForm"
)

// dcterms, dc
const (
	Title         = DCTerms + "title"
	Description   = DCTerms + "description"
	Creator       = DCTerms + "creator"
	Contributor   = DCTerms + "contributor"
	Publisher     = DCTerms + "publisher"
	DateSubmitted = DCTerms + "dateSubmitted"
	DateAccepted  = DCTerms + "dateAccepted"
	Modified      = DCTerms + "modified"
	DCCreator     = DC + "creator"
)

// foaf, vcard, org
const (
	Person = FOAF + "Person"
	Name   = FOAF + "name"

	VCardOrg      = VCard + "ORG"
	VCardOrgName  = VCard + "orgname"
	VCardEmail    = VCard + "EMAIL"
	VCardURL      = VCard + "URL"
	FormalOrg     = ORG + "FormalOrganization"
	OrgUnitOf     = ORG + "unitOf"
	OrgIdentifier = ORG + "identifier"
)

// openskos
const (
	Tenant = OpenSKOS + "tenant"
	Set    = OpenSKOS + "set"
	Code   = OpenSKOS + "code"
	UUID   = OpenSKOS + "uuid"
	Status = OpenSKOS + "status"

	DateDeleted = OpenSKOS + "dateDeleted"
	DeletedBy   = OpenSKOS + "deletedBy"
	ModifiedBy  = OpenSKOS + "modifiedBy"
	AcceptedBy  = OpenSKOS + "acceptedBy"

	EnableStatussesSystem       = OpenSKOS + "enableStatussesSystem"
	EnableSkosXl                = OpenSKOS + "enableSkosXl"
	DisableSearchInOtherTenants = OpenSKOS + "disableSearchInOtherTenants"
)

// Types of tenant and set resources.
const (
	TenantType = FormalOrg
	SetType    = "http://purl.org/dc/dcmitype/Dataset"
)
