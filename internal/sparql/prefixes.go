package sparql

// IRI heads of the namespaces the converter and the endpoint agree on
const (
	IRINode      = "https://www.openstreetmap.org/node/"
	IRIWay       = "https://www.openstreetmap.org/way/"
	IRIRelation  = "https://www.openstreetmap.org/relation/"
	IRIOsm       = "https://www.openstreetmap.org/"
	IRIKey       = "https://www.openstreetmap.org/wiki/Key:"
	IRIMeta      = "https://www.openstreetmap.org/meta/"
	IRIGeom      = "https://osm2rdf.cs.uni-freiburg.de/rdf/geom#"
	IRIMember    = "https://osm2rdf.cs.uni-freiburg.de/rdf/member#"
	IRIGeoSparql = "http://www.opengis.net/ont/geosparql#"
	IRIRdf       = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
)

// Prefix declarations, joined by single spaces ahead of each query
const (
	PrefixNode      = "PREFIX osmnode: <" + IRINode + ">"
	PrefixWay       = "PREFIX osmway: <" + IRIWay + ">"
	PrefixRelation  = "PREFIX osmrel: <" + IRIRelation + ">"
	PrefixOsm       = "PREFIX osm: <" + IRIOsm + ">"
	PrefixKey       = "PREFIX osmkey: <" + IRIKey + ">"
	PrefixMeta      = "PREFIX osmmeta: <" + IRIMeta + ">"
	PrefixGeom      = "PREFIX osm2rdfgeom: <" + IRIGeom + ">"
	PrefixMember    = "PREFIX osm2rdfmember: <" + IRIMember + ">"
	PrefixGeoSparql = "PREFIX geo: <" + IRIGeoSparql + ">"
	PrefixRdf       = "PREFIX rdf: <" + IRIRdf + ">"
)

// DefaultPrefixes covers every query the builder emits
var DefaultPrefixes = []string{
	PrefixNode,
	PrefixWay,
	PrefixRelation,
	PrefixOsm,
	PrefixKey,
	PrefixMeta,
	PrefixGeom,
	PrefixMember,
	PrefixGeoSparql,
	PrefixRdf,
}
