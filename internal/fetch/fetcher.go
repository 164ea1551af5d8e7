package fetch

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/wegman-software/osm2sparql-go/internal/logger"
	"github.com/wegman-software/osm2sparql-go/internal/osm"
	"github.com/wegman-software/osm2sparql-go/internal/sparql"
)

// Fetcher is the typed access layer over the SPARQL client and query
// builder. Every id-set argument is divided into batches of at most
// maxValues ids per outgoing query, issued serially.
type Fetcher struct {
	client    *sparql.Client
	maxValues int
}

// ObjectMeta carries the tags and timestamp of a way or relation fetched
// for geometry regeneration
type ObjectMeta struct {
	Tags      []osm.Tag
	Timestamp string
}

// New creates a fetcher batching at most maxValues ids per query
func New(client *sparql.Client, maxValues int) *Fetcher {
	return &Fetcher{client: client, maxValues: maxValues}
}

// Batch divides ids into chunks of at most size and invokes fn once per
// chunk, serially, in the given order
func Batch(ids []int64, size int, fn func([]int64) error) error {
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		if err := fn(ids[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// runQuery dispatches one query with the default prefixes and decodes the
// results document
func (f *Fetcher) runQuery(ctx context.Context, query string) (*resultsDoc, error) {
	f.client.SetPrefixes(sparql.DefaultPrefixes)
	f.client.SetQuery(query)
	body, err := f.client.RunQuery(ctx)
	if err != nil {
		return nil, err
	}
	return decodeResults(body)
}

// NodeLocations fetches dummy nodes for the given ids from their stored
// WKT point geometries. Ids without a geometry in the store are absent
// from the result; more results than ids is fatal.
func (f *Fetcher) NodeLocations(ctx context.Context, ids []int64) ([]*osm.Node, error) {
	var nodes []*osm.Node
	err := Batch(ids, f.maxValues, func(batch []int64) error {
		query := sparql.NodeLocationsQuery(batch)
		doc, err := f.runQuery(ctx, query)
		if err != nil {
			return err
		}
		if len(doc.Results) > len(batch) {
			return &SizeMismatchError{Requested: len(batch), Returned: len(doc.Results)}
		}
		for _, row := range doc.Results {
			geo, err := row.require("nodeGeo", query)
			if err != nil {
				return err
			}
			wkt, err := row.require("location", query)
			if err != nil {
				return err
			}
			id, err := geomNodeID(geo)
			if err != nil {
				return err
			}
			node, err := osm.NodeFromPoint(id, wkt)
			if err != nil {
				return fmt.Errorf("node %d: %w", id, err)
			}
			nodes = append(nodes, node)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

// Ways fetches dummy ways with their ordered node references
func (f *Fetcher) Ways(ctx context.Context, ids []int64) ([]*osm.Way, error) {
	type wayMember struct {
		pos int
		ref int64
	}
	members := make(map[int64][]wayMember)

	err := Batch(ids, f.maxValues, func(batch []int64) error {
		query := sparql.WayMembersQuery(batch)
		doc, err := f.runQuery(ctx, query)
		if err != nil {
			return err
		}
		for _, row := range doc.Results {
			wayURI, err := row.require("way", query)
			if err != nil {
				return err
			}
			nodeURI, err := row.require("node", query)
			if err != nil {
				return err
			}
			posLit, err := row.require("pos", query)
			if err != nil {
				return err
			}
			id, err := wayID(wayURI)
			if err != nil {
				return err
			}
			ref, err := nodeID(nodeURI)
			if err != nil {
				return err
			}
			pos, err := strconv.Atoi(posLit)
			if err != nil {
				return &MalformedResponseError{Binding: "pos", Detail: "not an integer: " + posLit}
			}
			members[id] = append(members[id], wayMember{pos: pos, ref: ref})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ways := make([]*osm.Way, 0, len(members))
	for _, id := range sortedKeys(members) {
		ms := members[id]
		sort.Slice(ms, func(i, j int) bool { return ms[i].pos < ms[j].pos })
		way := osm.NewWay(id)
		for _, m := range ms {
			way.AddNode(m.ref)
		}
		ways = append(ways, way)
	}
	return ways, nil
}

// Relations fetches dummy relations with their ordered members, roles and
// type tag
func (f *Fetcher) Relations(ctx context.Context, ids []int64) ([]*osm.Relation, error) {
	type relMember struct {
		pos    int
		member osm.Member
	}
	members := make(map[int64][]relMember)
	types := make(map[int64]string)

	err := Batch(ids, f.maxValues, func(batch []int64) error {
		query := sparql.RelationMembersQuery(batch)
		doc, err := f.runQuery(ctx, query)
		if err != nil {
			return err
		}
		for _, row := range doc.Results {
			relURI, err := row.require("rel", query)
			if err != nil {
				return err
			}
			relType, err := row.require("type", query)
			if err != nil {
				return err
			}
			memberURI, err := row.require("memberUri", query)
			if err != nil {
				return err
			}
			role, err := row.require("memberRole", query)
			if err != nil {
				return err
			}
			posLit, err := row.require("memberPos", query)
			if err != nil {
				return err
			}
			id, err := relationID(relURI)
			if err != nil {
				return err
			}
			kind, ref, err := memberID(memberURI)
			if err != nil {
				return err
			}
			pos, err := strconv.Atoi(posLit)
			if err != nil {
				return &MalformedResponseError{Binding: "memberPos", Detail: "not an integer: " + posLit}
			}
			types[id] = relType
			members[id] = append(members[id], relMember{
				pos:    pos,
				member: osm.Member{Kind: kind, Ref: ref, Role: role},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	relations := make([]*osm.Relation, 0, len(members))
	for _, id := range sortedKeys(members) {
		ms := members[id]
		sort.Slice(ms, func(i, j int) bool { return ms[i].pos < ms[j].pos })
		rel := osm.NewRelation(id)
		for _, m := range ms {
			rel.AddMember(m.member)
		}
		rel.SetType(types[id])
		relations = append(relations, rel)
	}
	return relations, nil
}

// WayReferencedNodes returns the distinct node ids referenced by the ways
func (f *Fetcher) WayReferencedNodes(ctx context.Context, wayIDs []int64) ([]int64, error) {
	return f.idQuery(ctx, wayIDs, sparql.WayReferencedNodesQuery, "node", nodeID)
}

// WaysReferencingNodes returns ids of ways that reference a node in the set
func (f *Fetcher) WaysReferencingNodes(ctx context.Context, nodeIDs []int64) ([]int64, error) {
	return f.idQuery(ctx, nodeIDs, sparql.WaysReferencingNodesQuery, "way", wayID)
}

// RelationsReferencingNodes returns ids of relations that reference a node
// in the set
func (f *Fetcher) RelationsReferencingNodes(ctx context.Context, nodeIDs []int64) ([]int64, error) {
	return f.idQuery(ctx, nodeIDs, sparql.RelationsReferencingNodesQuery, "rel", relationID)
}

// RelationsReferencingWays returns ids of relations that reference a way
// in the set
func (f *Fetcher) RelationsReferencingWays(ctx context.Context, wayIDs []int64) ([]int64, error) {
	return f.idQuery(ctx, wayIDs, sparql.RelationsReferencingWaysQuery, "rel", relationID)
}

// RelationsReferencingRelations returns ids of relations that reference a
// relation in the set
func (f *Fetcher) RelationsReferencingRelations(ctx context.Context, relationIDs []int64) ([]int64, error) {
	return f.idQuery(ctx, relationIDs, sparql.RelationsReferencingRelationsQuery, "rel", relationID)
}

// idQuery runs a single-binding id query over batches and collects parsed ids
func (f *Fetcher) idQuery(ctx context.Context, ids []int64, build func([]int64) string,
	bindingName string, parse func(string) (int64, error)) ([]int64, error) {

	var out []int64
	err := Batch(ids, f.maxValues, func(batch []int64) error {
		query := build(batch)
		doc, err := f.runQuery(ctx, query)
		if err != nil {
			return err
		}
		for _, row := range doc.Results {
			uri, err := row.require(bindingName, query)
			if err != nil {
				return err
			}
			id, err := parse(uri)
			if err != nil {
				return err
			}
			out = append(out, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RelationMemberIDs returns the member ids of the relations, partitioned
// by member kind
func (f *Fetcher) RelationMemberIDs(ctx context.Context, relationIDs []int64) (nodes, ways, relations []int64, err error) {
	err = Batch(relationIDs, f.maxValues, func(batch []int64) error {
		query := sparql.RelationMemberIDsQuery(batch)
		doc, err := f.runQuery(ctx, query)
		if err != nil {
			return err
		}
		for _, row := range doc.Results {
			uri, err := row.require("memberUri", query)
			if err != nil {
				return err
			}
			kind, id, err := memberID(uri)
			if err != nil {
				return err
			}
			switch kind {
			case osm.KindNode:
				nodes = append(nodes, id)
			case osm.KindWay:
				ways = append(ways, id)
			case osm.KindRelation:
				relations = append(relations, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return nodes, ways, relations, nil
}

// TagsAndTimestamps fetches the tags and timestamp of each subject,
// needed so the converter regenerates geometry triples identically to the
// bulk load. Supported kinds are ways and relations.
func (f *Fetcher) TagsAndTimestamps(ctx context.Context, kind osm.Kind, ids []int64) (map[int64]*ObjectMeta, error) {
	var prefix string
	var parse func(string) (int64, error)
	switch kind {
	case osm.KindWay:
		prefix, parse = "osmway", wayID
	case osm.KindRelation:
		prefix, parse = "osmrel", relationID
	default:
		return nil, fmt.Errorf("tags and timestamps not supported for kind %s", kind)
	}

	meta := make(map[int64]*ObjectMeta)
	err := Batch(ids, f.maxValues, func(batch []int64) error {
		query := sparql.TagsAndTimestampsQuery(prefix, batch)
		doc, err := f.runQuery(ctx, query)
		if err != nil {
			return err
		}
		for _, row := range doc.Results {
			subject, err := row.require("s", query)
			if err != nil {
				return err
			}
			id, err := parse(subject)
			if err != nil {
				return err
			}
			m := meta[id]
			if m == nil {
				m = &ObjectMeta{}
				meta[id] = m
			}
			if ts, ok := row.value("time"); ok {
				m.Timestamp = strings.TrimSuffix(ts, "Z")
				continue
			}
			key, err := row.require("key", query)
			if err != nil {
				return err
			}
			value, err := row.require("value", query)
			if err != nil {
				return err
			}
			if !strings.HasPrefix(key, sparql.IRIKey) {
				return &BadIdentifierError{Value: key}
			}
			m.Tags = append(m.Tags, osm.Tag{Key: key[len(sparql.IRIKey):], Value: value})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// LatestNodeTimestamp returns the most recent timestamp of any node in the
// store, used to seed the replication sequence
func (f *Fetcher) LatestNodeTimestamp(ctx context.Context) (string, error) {
	query := sparql.LatestNodeTimestampQuery()
	doc, err := f.runQuery(ctx, query)
	if err != nil {
		return "", err
	}
	if len(doc.Results) == 0 {
		return "", &MalformedResponseError{Binding: "time", Detail: "empty result for latest node timestamp"}
	}
	ts, err := doc.Results[0].require("time", query)
	if err != nil {
		return "", err
	}
	logger.Get().Debug("Latest node timestamp in store", zap.String("timestamp", ts))
	return ts, nil
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
