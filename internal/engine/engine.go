package engine

import (
	"bufio"
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wegman-software/osm2sparql-go/internal/config"
	"github.com/wegman-software/osm2sparql-go/internal/convert"
	"github.com/wegman-software/osm2sparql-go/internal/fetch"
	"github.com/wegman-software/osm2sparql-go/internal/logger"
	"github.com/wegman-software/osm2sparql-go/internal/osc"
	"github.com/wegman-software/osm2sparql-go/internal/osm"
	"github.com/wegman-software/osm2sparql-go/internal/sparql"
	"github.com/wegman-software/osm2sparql-go/internal/ttl"
)

// Engine applies one OSM change file to the SPARQL endpoint as a sequence
// of DELETE and INSERT DATA updates, leaving the endpoint equivalent to a
// re-conversion of the full snapshot. The seven phases run strictly in
// order; every phase completes before the next begins.
type Engine struct {
	cfg     *config.Config
	client  *sparql.Client
	fetcher *fetch.Fetcher
	cs      *ChangeSet
	changes []osc.Change
	build   *convert.BuildDir
	log     *zap.Logger
}

// New creates an engine bound to the configured endpoint
func New(cfg *config.Config) (*Engine, error) {
	client, err := sparql.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:     cfg,
		client:  client,
		fetcher: fetch.New(client, cfg.MaxValuesPerQuery),
		log:     logger.Get(),
	}, nil
}

// Fetcher exposes the typed endpoint accessors, used by the replication
// driver to seed its sequence from the store's latest node timestamp
func (e *Engine) Fetcher() *fetch.Fetcher {
	return e.fetcher
}

// ApplyFile applies a single change file (plain or gzip-compressed) to
// the endpoint. On error the scratch files are left on disk for
// post-mortem; on success they are removed.
func (e *Engine) ApplyFile(ctx context.Context, path string) error {
	e.log.Info("Applying change file", zap.String("path", path))

	parser := osc.NewParser()
	changes, errChan := parser.ParseFile(ctx, path)

	e.changes = e.changes[:0]
	for change := range changes {
		e.changes = append(e.changes, change)
	}
	for err := range errChan {
		if err != nil {
			return fmt.Errorf("malformed change file: %w", err)
		}
	}

	e.cs = NewChangeSet()
	e.classify()
	if err := e.cs.CheckInvariants(); err != nil {
		return fmt.Errorf("after classification: %w", err)
	}

	stats := parser.Stats()
	e.log.Info("Classified change file",
		zap.Int64("nodes_created", stats.NodesCreated),
		zap.Int64("nodes_modified", stats.NodesModified),
		zap.Int64("nodes_deleted", stats.NodesDeleted),
		zap.Int64("ways_created", stats.WaysCreated),
		zap.Int64("ways_modified", stats.WaysModified),
		zap.Int64("ways_deleted", stats.WaysDeleted),
		zap.Int64("relations_created", stats.RelationsCreated),
		zap.Int64("relations_modified", stats.RelationsModified),
		zap.Int64("relations_deleted", stats.RelationsDeleted),
		zap.Int("modified_areas", len(e.cs.ModifiedAreas)))

	// An empty change file applies no updates at all
	if stats.Total() == 0 {
		e.log.Info("Change file is empty, nothing to apply")
		return nil
	}

	build, err := convert.NewBuildDir(e.cfg.ScratchDir)
	if err != nil {
		return err
	}
	e.build = build

	if err := e.materialize(); err != nil {
		return fmt.Errorf("materializing changed objects: %w", err)
	}
	if err := e.computeGeometryClosure(ctx); err != nil {
		return fmt.Errorf("computing geometry-update closure: %w", err)
	}
	if err := e.expandReferences(ctx); err != nil {
		return fmt.Errorf("expanding reference closure: %w", err)
	}
	if err := e.cs.CheckInvariants(); err != nil {
		return fmt.Errorf("after reference closure: %w", err)
	}
	if err := e.createDummies(ctx); err != nil {
		return fmt.Errorf("creating dummy objects: %w", err)
	}
	if err := e.emitUpdates(ctx); err != nil {
		return err
	}

	if err := e.build.Release(); err != nil {
		e.log.Warn("Failed to remove scratch directory", zap.Error(err))
	}
	e.log.Info("Change file applied")
	return nil
}

// classify is phase 1: partition the change file's ids into the per-kind
// created/modified/deleted sets and record modified multipolygons
func (e *Engine) classify() {
	for _, c := range e.changes {
		id := c.ID()
		switch c.Kind {
		case osm.KindNode:
			switch c.Action {
			case osc.ActionCreate:
				e.cs.CreatedNodes.add(id)
			case osc.ActionModify:
				e.cs.ModifiedNodes.add(id)
			case osc.ActionDelete:
				e.cs.DeletedNodes.add(id)
			}
		case osm.KindWay:
			switch c.Action {
			case osc.ActionCreate:
				e.cs.CreatedWays.add(id)
			case osc.ActionModify:
				e.cs.ModifiedWays.add(id)
			case osc.ActionDelete:
				e.cs.DeletedWays.add(id)
			}
		case osm.KindRelation:
			switch c.Action {
			case osc.ActionCreate:
				e.cs.CreatedRelations.add(id)
			case osc.ActionModify:
				e.cs.ModifiedRelations.add(id)
				if c.Relation.IsMultipolygon() {
					e.cs.ModifiedAreas.add(id)
				}
			case osc.ActionDelete:
				e.cs.DeletedRelations.add(id)
			}
		}
	}
}

// materialize is phase 2: write every created or modified element to its
// scratch document and collect references to objects outside the change
// file. Deletes contribute no XML.
func (e *Engine) materialize() error {
	for _, c := range e.changes {
		if c.Action == osc.ActionDelete {
			continue
		}
		switch c.Kind {
		case osm.KindWay:
			for _, ref := range c.Way.NodeRefs {
				e.referenceNode(ref)
			}
		case osm.KindRelation:
			for _, ref := range c.Relation.NodeRefs {
				e.referenceNode(ref)
			}
			for _, m := range c.Relation.Members {
				switch m.Kind {
				case osm.KindNode:
					e.referenceNode(m.Ref)
				case osm.KindWay:
					e.referenceWay(m.Ref)
				case osm.KindRelation:
					if !e.cs.InChangeFile(osm.KindRelation, m.Ref) {
						e.cs.ReferencedRelations.add(m.Ref)
					}
				}
			}
		}
		if err := e.build.AppendXML(c.Kind, c.ToXML()); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) referenceNode(id int64) {
	if !e.cs.InChangeFile(osm.KindNode, id) {
		e.cs.ReferencedNodes.add(id)
	}
}

func (e *Engine) referenceWay(id int64) {
	if !e.cs.InChangeFile(osm.KindWay, id) && !e.cs.WaysToUpdateGeometry.has(id) {
		e.cs.ReferencedWays.add(id)
	}
}

// computeGeometryClosure is phase 3: find unchanged ways and relations
// whose derived geometry depends on a modified object. Cascading through
// relation-of-relation membership is skipped: the converter does not
// derive geometry for relation members that are themselves relations.
func (e *Engine) computeGeometryClosure(ctx context.Context) error {
	modifiedNodes := e.cs.ModifiedNodes.sorted()
	if len(modifiedNodes) > 0 {
		wayIDs, err := e.fetcher.WaysReferencingNodes(ctx, modifiedNodes)
		if err != nil {
			return err
		}
		for _, id := range wayIDs {
			if !e.cs.InChangeFile(osm.KindWay, id) {
				e.cs.WaysToUpdateGeometry.add(id)
			}
		}

		relIDs, err := e.fetcher.RelationsReferencingNodes(ctx, modifiedNodes)
		if err != nil {
			return err
		}
		for _, id := range relIDs {
			if !e.cs.InChangeFile(osm.KindRelation, id) {
				e.cs.RelationsToUpdateGeometry.add(id)
			}
		}
	}

	waysWithNewGeometry := union(e.cs.ModifiedWays, e.cs.WaysToUpdateGeometry)
	if len(waysWithNewGeometry) > 0 {
		relIDs, err := e.fetcher.RelationsReferencingWays(ctx, waysWithNewGeometry)
		if err != nil {
			return err
		}
		for _, id := range relIDs {
			if !e.cs.InChangeFile(osm.KindRelation, id) {
				e.cs.RelationsToUpdateGeometry.add(id)
			}
		}
	}

	// Ways that entered the geometry closure must no longer count as
	// plain references
	for id := range e.cs.WaysToUpdateGeometry {
		delete(e.cs.ReferencedWays, id)
	}
	for id := range e.cs.RelationsToUpdateGeometry {
		delete(e.cs.ReferencedRelations, id)
	}

	e.log.Info("Computed geometry-update closure",
		zap.Int("ways", len(e.cs.WaysToUpdateGeometry)),
		zap.Int("relations", len(e.cs.RelationsToUpdateGeometry)))
	return nil
}

// expandReferences is phase 4: pull in the ids every dummy object will
// need, one level at a time (relation members first, then way nodes)
func (e *Engine) expandReferences(ctx context.Context) error {
	relations := union(e.cs.ReferencedRelations, e.cs.RelationsToUpdateGeometry)
	if len(relations) > 0 {
		nodeIDs, wayIDs, _, err := e.fetcher.RelationMemberIDs(ctx, relations)
		if err != nil {
			return err
		}
		for _, id := range nodeIDs {
			e.referenceNode(id)
		}
		for _, id := range wayIDs {
			e.referenceWay(id)
		}
	}

	ways := union(e.cs.ReferencedWays, e.cs.WaysToUpdateGeometry)
	if len(ways) > 0 {
		nodeIDs, err := e.fetcher.WayReferencedNodes(ctx, ways)
		if err != nil {
			return err
		}
		for _, id := range nodeIDs {
			e.referenceNode(id)
		}
	}

	e.log.Info("Expanded reference closure",
		zap.Int("nodes", len(e.cs.ReferencedNodes)),
		zap.Int("ways", len(e.cs.ReferencedWays)),
		zap.Int("relations", len(e.cs.ReferencedRelations)))
	return nil
}

// createDummies is phase 5: fetch referenced-but-unchanged objects from
// the endpoint and append them to the scratch documents. Objects in the
// geometry closure also get their tags and timestamp so the converter
// regenerates their triples identically to the bulk load.
func (e *Engine) createDummies(ctx context.Context) error {
	nodes, err := e.fetcher.NodeLocations(ctx, e.cs.ReferencedNodes.sorted())
	if err != nil {
		return err
	}
	for _, n := range nodes {
		if err := e.build.AppendXML(osm.KindNode, n.ToXML()); err != nil {
			return err
		}
	}

	ways, err := e.fetcher.Ways(ctx, union(e.cs.ReferencedWays, e.cs.WaysToUpdateGeometry))
	if err != nil {
		return err
	}
	wayMeta, err := e.fetcher.TagsAndTimestamps(ctx, osm.KindWay, e.cs.WaysToUpdateGeometry.sorted())
	if err != nil {
		return err
	}
	for _, w := range ways {
		if meta := wayMeta[w.ID]; meta != nil {
			w.Timestamp = meta.Timestamp
			w.Tags = meta.Tags
		}
		if err := e.build.AppendXML(osm.KindWay, w.ToXML()); err != nil {
			return err
		}
	}

	relations, err := e.fetcher.Relations(ctx, union(e.cs.ReferencedRelations, e.cs.RelationsToUpdateGeometry))
	if err != nil {
		return err
	}
	relMeta, err := e.fetcher.TagsAndTimestamps(ctx, osm.KindRelation, e.cs.RelationsToUpdateGeometry.sorted())
	if err != nil {
		return err
	}
	for _, r := range relations {
		if meta := relMeta[r.ID]; meta != nil {
			r.Timestamp = meta.Timestamp
			relType := r.Type
			r.Tags = meta.Tags
			r.Type = ""
			for _, t := range meta.Tags {
				if t.Key == "type" {
					r.Type = t.Value
				}
			}
			if r.Type == "" {
				r.SetType(relType)
			}
		}
		if err := e.build.AppendXML(osm.KindRelation, r.ToXML()); err != nil {
			return err
		}
	}

	e.log.Info("Materialized dummy objects",
		zap.Int("nodes", len(nodes)),
		zap.Int("ways", len(ways)),
		zap.Int("relations", len(relations)))
	return nil
}

// hasInserts reports whether any object contributes triples to insert
func (e *Engine) hasInserts() bool {
	return len(e.cs.NodesToInsert()) > 0 ||
		len(e.cs.WaysToInsert()) > 0 ||
		len(e.cs.RelationsToInsert()) > 0
}

// emitUpdates is phases 6 and 7: run the converter when anything needs
// re-inserting, then issue the deletes, the filtered inserts, and the
// final cache-clear in that order
func (e *Engine) emitUpdates(ctx context.Context) error {
	inserts := e.hasInserts()
	if inserts {
		if err := e.convertAndFilter(ctx); err != nil {
			return err
		}
	}

	if err := e.emitDeletes(ctx); err != nil {
		return err
	}

	if inserts {
		if err := e.emitInserts(ctx); err != nil {
			return err
		}
	}

	// The cache-clear must happen strictly after all updates so
	// subsequent reads observe the new state
	if err := e.client.ClearCache(ctx); err != nil {
		return err
	}
	return nil
}

// emitDeletes issues the star-plus-one-hop delete queries, nodes first,
// then ways, then relations. The per-kind batch size accounts for the
// number of VALUES entries each id expands to.
func (e *Engine) emitDeletes(ctx context.Context) error {
	kinds := []struct {
		kind osm.Kind
		ids  []int64
	}{
		{osm.KindNode, union(e.cs.DeletedNodes, e.cs.ModifiedNodes)},
		{osm.KindWay, union(e.cs.DeletedWays, e.cs.ModifiedWays, e.cs.WaysToUpdateGeometry)},
		{osm.KindRelation, union(e.cs.DeletedRelations, e.cs.ModifiedRelations, e.cs.RelationsToUpdateGeometry)},
	}

	for _, k := range kinds {
		batchSize := e.cfg.MaxValuesPerQuery / sparql.DeleteSubjectsPerID(k.kind)
		err := fetch.Batch(k.ids, batchSize, func(batch []int64) error {
			e.client.SetPrefixes(sparql.DefaultPrefixes)
			e.client.SetQuery(sparql.DeleteQuery(k.kind, batch))
			if err := e.client.RunUpdate(ctx); err != nil {
				return fmt.Errorf("deleting %s batch of %d: %w", k.kind, len(batch), err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if len(k.ids) > 0 {
			e.log.Info("Deleted objects", zap.String("kind", k.kind.String()), zap.Int("count", len(k.ids)))
		}
	}
	return nil
}

// convertAndFilter runs the converter over the reconstructed documents and
// streams its turtle output through the filter and the blank-node grouper
// into the triples buffer file
func (e *Engine) convertAndFilter(ctx context.Context) error {
	driver := convert.NewDriver(e.cfg.ConverterCommand, e.cfg.ConverterArgs, e.build)
	stream, err := driver.Run(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	buffer, err := newTripleBuffer(e.build.TriplesPath())
	if err != nil {
		return err
	}
	defer buffer.close()

	filter := newTripleFilter(e.cs)
	grouper := newBlankGrouper(buffer.write)

	kept, total := 0, 0
	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		triple, ok := ttl.ParseLine(scanner.Text())
		if !ok {
			continue
		}
		total++
		if !filter.Keep(triple) {
			continue
		}
		kept++
		if err := grouper.Add(triple); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading converter output: %w", err)
	}
	if err := grouper.Close(); err != nil {
		return err
	}
	if err := buffer.flush(); err != nil {
		return err
	}

	e.log.Info("Filtered converter output",
		zap.Int("triples_total", total),
		zap.Int("triples_kept", kept))
	return nil
}

// emitInserts flushes the buffered triples in batches of INSERT DATA
// updates
func (e *Engine) emitInserts(ctx context.Context) error {
	lines, err := readTripleBuffer(e.build.TriplesPath())
	if err != nil {
		return err
	}

	inserted := 0
	for start := 0; start < len(lines); start += e.cfg.MaxValuesPerQuery {
		end := start + e.cfg.MaxValuesPerQuery
		if end > len(lines) {
			end = len(lines)
		}
		e.client.SetPrefixes(sparql.DefaultPrefixes)
		e.client.SetQuery(sparql.InsertDataQuery(lines[start:end]))
		if err := e.client.RunUpdate(ctx); err != nil {
			return fmt.Errorf("inserting triple batch of %d: %w", end-start, err)
		}
		inserted += end - start
	}

	e.log.Info("Inserted triples", zap.Int("count", inserted))
	return nil
}
