package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/JonMunkholm/rosterimport/internal/core"
	"github.com/JonMunkholm/rosterimport/internal/model"
	"github.com/JonMunkholm/rosterimport/internal/store"
)

func (r *run) parseLink(ctx context.Context, row core.Row) (model.Link, error) {
	var l model.Link
	var err error

	if l.URL, err = core.ParseURL("url", row.Get("url")); err != nil {
		return l, err
	}
	l.Title = core.ParseString(row.Get("title"), "")
	l.Category = core.ParseChoice(ctx, "category", row.Get("category"), core.LinkCategoryChoices)
	l.Description = core.ToPgText(row.Get("description"))
	l.Author = core.ToPgText(row.Get("author"))

	if l.OfficerIDs, err = r.officerRefs.ResolveList(core.ColOfficerIDs, row.Get(core.ColOfficerIDs)); err != nil {
		return l, err
	}
	if l.IncidentIDs, err = r.incidentRefs.ResolveList("incident_ids", row.Get("incident_ids")); err != nil {
		return l, err
	}
	return l, nil
}

func (r *run) loadLinks(ctx context.Context) error {
	links, err := r.tx.Links(ctx, r.dept.ID)
	if err != nil {
		return fmt.Errorf("load links: %w", err)
	}
	r.links = make(map[int64]model.Link, len(links))
	ids := make([]int64, 0, len(links))
	for _, l := range links {
		r.links[l.ID] = l
		ids = append(ids, l.ID)
	}
	r.linkRefs = NewResolver("link", ids)
	return nil
}

func (r *run) linksPass(ctx context.Context, t *core.Table) error {
	if err := r.loadLinks(ctx); err != nil {
		return err
	}

	return r.eachRow(ctx, t, EntityLinks, func(row core.Row) error {
		ref, err := ParseRef(core.ColID, row.Get(core.ColID))
		if err != nil {
			return err
		}
		if err := checkToken(r.linkRefs, ref); err != nil {
			return err
		}
		l, err := r.parseLink(ctx, row)
		if err != nil {
			return err
		}

		switch r.plan.plan(ref) {
		case actUpdate:
			id, _ := ref.ID()
			existing, ok := r.links[id]
			if !ok {
				return &core.ReferenceError{Entity: "link", Value: ref.String(), Reason: "does not exist in this partition"}
			}
			return r.updateLink(ctx, existing, l, row)
		case actReplace:
			id, _ := ref.ID()
			if err := r.deleteLink(ctx, id, row.Line); err != nil {
				return err
			}
			l.ID = id
			return r.insertLink(ctx, ref, l, row.Line)
		default:
			if r.opts.Create == Incremental {
				match, ok, err := r.equivalentLink(ctx, l, row)
				if err != nil {
					return err
				}
				if ok {
					r.claim(EntityLinks, match.ID)
					if err := bind(r.linkRefs, ref, match.ID); err != nil {
						return err
					}
					return r.updateLink(ctx, match, l, row)
				}
			}
			return r.insertLink(ctx, ref, l, row.Line)
		}
	})
}

// equivalentLink finds an unclaimed link with the same URL and title. Links of
// the partition are preferred over links attached to nothing.
func (r *run) equivalentLink(ctx context.Context, l model.Link, row core.Row) (model.Link, bool, error) {
	same := func(e model.Link) bool {
		if r.isClaimed(EntityLinks, e.ID) || e.URL != l.URL {
			return false
		}
		return !row.Has("title") || e.Title == l.Title
	}

	ids := make([]int64, 0, len(r.links))
	for id := range r.links {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if e := r.links[id]; same(e) {
			return e, true, nil
		}
	}

	loose, err := r.tx.LinksByURL(ctx, l.URL)
	if err != nil {
		return model.Link{}, false, fmt.Errorf("find links: %w", err)
	}
	for _, e := range loose {
		if len(e.OfficerIDs) == 0 && len(e.IncidentIDs) == 0 && same(e) {
			return e, true, nil
		}
	}
	return model.Link{}, false, nil
}

func (r *run) insertLink(ctx context.Context, ref Ref, l model.Link, line int) error {
	if err := r.tx.InsertLink(ctx, &l); err != nil {
		return fmt.Errorf("insert link: %w", err)
	}
	r.links[l.ID] = l
	r.claim(EntityLinks, l.ID)
	if err := bind(r.linkRefs, ref, l.ID); err != nil {
		return err
	}
	r.report.created(EntityLinks, l.ID, r.file, line)
	return nil
}

func (r *run) updateLink(ctx context.Context, existing, in model.Link, row core.Row) error {
	l := existing
	l.URL = in.URL
	if row.Has("title") {
		l.Title = in.Title
	}
	if row.Has("category") {
		l.Category = in.Category
	}
	if row.Has("description") {
		l.Description = in.Description
	}
	if row.Has("author") {
		l.Author = in.Author
	}
	if row.Has(core.ColOfficerIDs) {
		l.OfficerIDs = in.OfficerIDs
	}
	if row.Has("incident_ids") {
		l.IncidentIDs = in.IncidentIDs
	}

	r.claim(EntityLinks, l.ID)
	if linkEqual(existing, l) {
		r.report.unchanged(EntityLinks)
		return nil
	}
	if err := r.tx.UpdateLink(ctx, l); err != nil {
		return fmt.Errorf("update link %d: %w", l.ID, err)
	}
	r.links[l.ID] = l
	r.report.updated(EntityLinks, l.ID, r.file, row.Line)
	return nil
}

func (r *run) deleteLink(ctx context.Context, id int64, line int) error {
	if _, err := r.tx.Link(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load link %d: %w", id, err)
	}
	if err := r.tx.DeleteLink(ctx, id); err != nil {
		return fmt.Errorf("delete link %d: %w", id, err)
	}
	delete(r.links, id)
	r.report.deleted(EntityLinks, id, r.file, line)
	return nil
}

func linkEqual(a, b model.Link) bool {
	return a.URL == b.URL &&
		a.Title == b.Title &&
		model.TextEqual(a.Category, b.Category) &&
		model.TextEqual(a.Description, b.Description) &&
		model.TextEqual(a.Author, b.Author) &&
		model.IDsEqual(a.OfficerIDs, b.OfficerIDs) &&
		model.IDsEqual(a.IncidentIDs, b.IncidentIDs)
}
