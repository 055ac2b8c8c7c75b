package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/rosterimport/internal/model"
)

// ============================================================================
// Incidents
// ============================================================================

const incidentColumns = `i.id, i.department_id, i.date, i.time, i.report_number, i.description, i.address_id`

func scanIncident(row pgx.Row) (model.Incident, error) {
	var i model.Incident
	err := row.Scan(&i.ID, &i.DepartmentID, &i.Date, &i.Time, &i.ReportNumber, &i.Description, &i.AddressID)
	return i, err
}

// associations reads an ordered association table into owner id -> ids.
func associations(ctx context.Context, db DBTX, query string, args ...any) (map[int64][]int64, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]int64)
	for rows.Next() {
		var owner, id int64
		if err := rows.Scan(&owner, &id); err != nil {
			return nil, err
		}
		out[owner] = append(out[owner], id)
	}
	return out, rows.Err()
}

// replaceAssociations rewrites the ordered association rows of one owner.
func replaceAssociations(ctx context.Context, db DBTX, table, ownerCol, idCol string, owner int64, ids []int64) error {
	tbl := pgx.Identifier{table}.Sanitize()
	owc := pgx.Identifier{ownerCol}.Sanitize()
	idc := pgx.Identifier{idCol}.Sanitize()

	if _, err := db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, tbl, owc), owner); err != nil {
		return wrap("clear "+table, err)
	}
	if len(ids) == 0 {
		return nil
	}
	_, err := db.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (%s, %s, position)
			SELECT $1, v.id, v.pos::int FROM unnest($2::bigint[]) WITH ORDINALITY AS v(id, pos)`, tbl, owc, idc),
		owner, ids)
	return wrap("write "+table, err)
}

func (t *pgTx) incidentAssociations(ctx context.Context, where string, args ...any) (officers, plates map[int64][]int64, err error) {
	officers, err = associations(ctx, t.tx,
		`SELECT oi.incident_id, oi.officer_id FROM officer_incidents oi
		 JOIN incidents i ON i.id = oi.incident_id WHERE `+where+` ORDER BY oi.incident_id, oi.position`, args...)
	if err != nil {
		return nil, nil, wrap("list incident officers", err)
	}
	plates, err = associations(ctx, t.tx,
		`SELECT ip.incident_id, ip.license_plate_id FROM incident_license_plates ip
		 JOIN incidents i ON i.id = ip.incident_id WHERE `+where+` ORDER BY ip.incident_id, ip.position`, args...)
	if err != nil {
		return nil, nil, wrap("list incident plates", err)
	}
	return officers, plates, nil
}

func (t *pgTx) Incidents(ctx context.Context, departmentID int64) ([]model.Incident, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+incidentColumns+` FROM incidents i WHERE i.department_id = $1 ORDER BY i.id`, departmentID)
	if err != nil {
		return nil, wrap("list incidents", err)
	}
	out, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (model.Incident, error) { return scanIncident(r) })
	if err != nil {
		return nil, wrap("list incidents", err)
	}

	officers, plates, err := t.incidentAssociations(ctx, `i.department_id = $1`, departmentID)
	if err != nil {
		return nil, err
	}
	for k := range out {
		out[k].OfficerIDs = officers[out[k].ID]
		out[k].PlateIDs = plates[out[k].ID]
	}
	return out, nil
}

func (t *pgTx) Incident(ctx context.Context, id int64) (model.Incident, error) {
	inc, err := scanIncident(t.tx.QueryRow(ctx, `SELECT `+incidentColumns+` FROM incidents i WHERE i.id = $1`, id))
	if err != nil {
		return model.Incident{}, wrap(fmt.Sprintf("incident %d", id), err)
	}
	officers, plates, err := t.incidentAssociations(ctx, `i.id = $1`, id)
	if err != nil {
		return model.Incident{}, err
	}
	inc.OfficerIDs = officers[id]
	inc.PlateIDs = plates[id]
	return inc, nil
}

func (t *pgTx) writeIncidentAssociations(ctx context.Context, i model.Incident) error {
	if err := replaceAssociations(ctx, t.tx, "officer_incidents", "incident_id", "officer_id", i.ID, i.OfficerIDs); err != nil {
		return err
	}
	return replaceAssociations(ctx, t.tx, "incident_license_plates", "incident_id", "license_plate_id", i.ID, i.PlateIDs)
}

func (t *pgTx) InsertIncident(ctx context.Context, i *model.Incident) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO incidents (id, department_id, date, time, report_number, description, address_id)
		 VALUES (COALESCE($1, nextval(pg_get_serial_sequence('incidents', 'id'))), $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		optionalID(i.ID), i.DepartmentID, i.Date, i.Time, i.ReportNumber, i.Description, i.AddressID,
	).Scan(&i.ID)
	if err != nil {
		return wrap("insert incident", err)
	}
	return t.writeIncidentAssociations(ctx, *i)
}

func (t *pgTx) UpdateIncident(ctx context.Context, i model.Incident) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE incidents SET date = $2, time = $3, report_number = $4, description = $5, address_id = $6
		 WHERE id = $1`,
		i.ID, i.Date, i.Time, i.ReportNumber, i.Description, i.AddressID,
	)
	if err := exactlyOne(fmt.Sprintf("update incident %d", i.ID), tag, err); err != nil {
		return err
	}
	return t.writeIncidentAssociations(ctx, i)
}

func (t *pgTx) DeleteIncident(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM incidents WHERE id = $1`, id)
	return exactlyOne(fmt.Sprintf("delete incident %d", id), tag, err)
}

// ============================================================================
// Links
// ============================================================================

const linkColumns = `l.id, l.title, l.url, l.link_type, l.description, l.author`

func scanLink(row pgx.Row) (model.Link, error) {
	var l model.Link
	err := row.Scan(&l.ID, &l.Title, &l.URL, &l.Category, &l.Description, &l.Author)
	return l, err
}

// withLinkAssociations fills the officer and incident ids of links.
func (t *pgTx) withLinkAssociations(ctx context.Context, links []model.Link) ([]model.Link, error) {
	if len(links) == 0 {
		return links, nil
	}
	ids := make([]int64, len(links))
	for k, l := range links {
		ids[k] = l.ID
	}

	officers, err := associations(ctx, t.tx,
		`SELECT link_id, officer_id FROM officer_links WHERE link_id = ANY($1) ORDER BY link_id, position`, ids)
	if err != nil {
		return nil, wrap("list link officers", err)
	}
	incidents, err := associations(ctx, t.tx,
		`SELECT link_id, incident_id FROM incident_links WHERE link_id = ANY($1) ORDER BY link_id, position`, ids)
	if err != nil {
		return nil, wrap("list link incidents", err)
	}
	for k := range links {
		links[k].OfficerIDs = officers[links[k].ID]
		links[k].IncidentIDs = incidents[links[k].ID]
	}
	return links, nil
}

func (t *pgTx) queryLinks(ctx context.Context, op, query string, args ...any) ([]model.Link, error) {
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	out, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (model.Link, error) { return scanLink(r) })
	if err != nil {
		return nil, wrap(op, err)
	}
	return t.withLinkAssociations(ctx, out)
}

func (t *pgTx) Links(ctx context.Context, departmentID int64) ([]model.Link, error) {
	return t.queryLinks(ctx, "list links",
		`SELECT `+linkColumns+` FROM links l
		 WHERE EXISTS (SELECT 1 FROM officer_links ol JOIN officers o ON o.id = ol.officer_id
		               WHERE ol.link_id = l.id AND o.department_id = $1)
		    OR EXISTS (SELECT 1 FROM incident_links il JOIN incidents i ON i.id = il.incident_id
		               WHERE il.link_id = l.id AND i.department_id = $1)
		 ORDER BY l.id`, departmentID)
}

func (t *pgTx) LinksByURL(ctx context.Context, url string) ([]model.Link, error) {
	return t.queryLinks(ctx, "find links",
		`SELECT `+linkColumns+` FROM links l WHERE l.url = $1 ORDER BY l.id`, url)
}

func (t *pgTx) Link(ctx context.Context, id int64) (model.Link, error) {
	l, err := scanLink(t.tx.QueryRow(ctx, `SELECT `+linkColumns+` FROM links l WHERE l.id = $1`, id))
	if err != nil {
		return model.Link{}, wrap(fmt.Sprintf("link %d", id), err)
	}
	links, err := t.withLinkAssociations(ctx, []model.Link{l})
	if err != nil {
		return model.Link{}, err
	}
	return links[0], nil
}

func (t *pgTx) writeLinkAssociations(ctx context.Context, l model.Link) error {
	if err := replaceAssociations(ctx, t.tx, "officer_links", "link_id", "officer_id", l.ID, l.OfficerIDs); err != nil {
		return err
	}
	return replaceAssociations(ctx, t.tx, "incident_links", "link_id", "incident_id", l.ID, l.IncidentIDs)
}

func (t *pgTx) InsertLink(ctx context.Context, l *model.Link) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO links (id, title, url, link_type, description, author)
		 VALUES (COALESCE($1, nextval(pg_get_serial_sequence('links', 'id'))), $2, $3, $4, $5, $6)
		 RETURNING id`,
		optionalID(l.ID), l.Title, l.URL, l.Category, l.Description, l.Author,
	).Scan(&l.ID)
	if err != nil {
		return wrap("insert link", err)
	}
	return t.writeLinkAssociations(ctx, *l)
}

func (t *pgTx) UpdateLink(ctx context.Context, l model.Link) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE links SET title = $2, url = $3, link_type = $4, description = $5, author = $6 WHERE id = $1`,
		l.ID, l.Title, l.URL, l.Category, l.Description, l.Author,
	)
	if err := exactlyOne(fmt.Sprintf("update link %d", l.ID), tag, err); err != nil {
		return err
	}
	return t.writeLinkAssociations(ctx, l)
}

func (t *pgTx) DeleteLink(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM links WHERE id = $1`, id)
	return exactlyOne(fmt.Sprintf("delete link %d", id), tag, err)
}

// ============================================================================
// Addresses and plates
// ============================================================================

func (t *pgTx) FindAddress(ctx context.Context, key model.AddressKey) (model.Address, error) {
	a := model.Address{AddressKey: key}
	err := t.tx.QueryRow(ctx,
		`SELECT id FROM locations
		 WHERE street_name IS NOT DISTINCT FROM $1 AND cross_street1 IS NOT DISTINCT FROM $2
		   AND cross_street2 IS NOT DISTINCT FROM $3 AND city IS NOT DISTINCT FROM $4
		   AND state IS NOT DISTINCT FROM $5 AND zip_code IS NOT DISTINCT FROM $6
		 ORDER BY id LIMIT 1`,
		key.StreetName, key.CrossStreet1, key.CrossStreet2, key.City, key.State, key.ZipCode,
	).Scan(&a.ID)
	if err != nil {
		return model.Address{}, wrap("find address", err)
	}
	return a, nil
}

func (t *pgTx) InsertAddress(ctx context.Context, a *model.Address) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO locations (street_name, cross_street1, cross_street2, city, state, zip_code)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		a.StreetName, a.CrossStreet1, a.CrossStreet2, a.City, a.State, a.ZipCode,
	).Scan(&a.ID)
	return wrap("insert address", err)
}

func (t *pgTx) FindPlate(ctx context.Context, key model.PlateKey) (model.Plate, error) {
	p := model.Plate{PlateKey: key}
	err := t.tx.QueryRow(ctx,
		`SELECT id FROM license_plates WHERE number = $1 AND state IS NOT DISTINCT FROM $2 ORDER BY id LIMIT 1`,
		key.Number, key.State,
	).Scan(&p.ID)
	if err != nil {
		return model.Plate{}, wrap(fmt.Sprintf("find license plate %q", key.Number), err)
	}
	return p, nil
}

func (t *pgTx) InsertPlate(ctx context.Context, p *model.Plate) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO license_plates (number, state) VALUES ($1, $2) RETURNING id`,
		p.Number, p.State,
	).Scan(&p.ID)
	return wrap("insert license plate", err)
}
