package pools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"callcenter_backend/internal/events"
	"callcenter_backend/internal/leads/domain"
	"callcenter_backend/internal/leads/importfile"
	"callcenter_backend/internal/leads/repository"
	"callcenter_backend/internal/leads/transport"
	"callcenter_backend/platform/apperr"
	"callcenter_backend/platform/phone"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	reasonMissingName  = "Missing Full Name"
	reasonMissingPhone = "Missing Phone Number"
)

// Header synonyms, highest priority first.
var (
	fullNameHeaders = []string{"Full Name", "full_name", "name", "fullName"}
	phoneHeaders    = []string{"Phone Number", "phone_number", "phone", "mobile", "telephone"}
	sectorHeaders   = []string{"Sector", "business_sector", "industry"}
	productHeaders  = []string{"Product", "product_name"}
)

var headerReplacer = strings.NewReplacer("-", "", "_", "", " ", "")

func normalizeHeader(label string) string {
	return strings.ToLower(headerReplacer.Replace(strings.TrimSpace(label)))
}

// importRow is one spreadsheet row after header matching.
type importRow struct {
	number   int
	fullName string
	phone    string
	sector   string
	products []string
}

func extractRow(number int, raw map[string]string) importRow {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cells := make(map[string]string, len(raw))
	for _, k := range keys {
		v := strings.TrimSpace(raw[k])
		if v == "" {
			continue
		}
		nk := normalizeHeader(k)
		if _, ok := cells[nk]; !ok {
			cells[nk] = v
		}
	}

	pick := func(headers []string) string {
		for _, h := range headers {
			if v, ok := cells[normalizeHeader(h)]; ok {
				return v
			}
		}
		return ""
	}

	return importRow{
		number:   number,
		fullName: pick(fullNameHeaders),
		phone:    phone.Normalize(pick(phoneHeaders)),
		sector:   pick(sectorHeaders),
		products: splitProducts(pick(productHeaders)),
	}
}

func splitProducts(cell string) []string {
	if cell == "" {
		return nil
	}
	parts := strings.FieldsFunc(cell, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// catalogIndex resolves sector and product names case-insensitively.
type catalogIndex struct {
	sectors  map[string]uuid.UUID
	products map[string]uuid.UUID
}

func newCatalogIndex(sectors []repository.Sector, products []repository.Product) catalogIndex {
	idx := catalogIndex{
		sectors:  make(map[string]uuid.UUID, len(sectors)),
		products: make(map[string]uuid.UUID, len(products)),
	}
	for _, s := range sectors {
		idx.sectors[strings.ToLower(strings.TrimSpace(s.Name))] = s.ID
	}
	for _, p := range products {
		idx.products[strings.ToLower(strings.TrimSpace(p.Name))] = p.ID
	}
	return idx
}

func (c catalogIndex) sector(name string) (uuid.UUID, bool) {
	id, ok := c.sectors[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

func (c catalogIndex) productIDs(names []string) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(names))
	seen := make(map[uuid.UUID]bool, len(names))
	for _, n := range names {
		id, ok := c.products[strings.ToLower(n)]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// BulkImport stages every valid, non-duplicate row as an unassigned lead in the
// pool's campaign and inserts them in one transaction. Row numbers start at 1.
func (s *Service) BulkImport(ctx context.Context, poolID uuid.UUID, rows []map[string]string, actorID *uuid.UUID) (transport.ImportResultResponse, error) {
	if err := s.checkRowLimit(len(rows)); err != nil {
		return transport.ImportResultResponse{}, err
	}

	pool, err := s.getPool(ctx, nil, poolID)
	if err != nil {
		return transport.ImportResultResponse{}, err
	}
	return s.bulkImport(ctx, pool, rows, actorID)
}

func (s *Service) checkRowLimit(n int) error {
	if limit := s.cfg.GetImportMaxRows(); limit > 0 && n > limit {
		return apperr.Validation(fmt.Sprintf("import is limited to %d rows", limit))
	}
	return nil
}

func (s *Service) bulkImport(ctx context.Context, pool repository.Pool, rows []map[string]string, actorID *uuid.UUID) (transport.ImportResultResponse, error) {
	poolID := pool.ID
	extracted := make([]importRow, len(rows))
	phones := make([]string, 0, len(rows))
	for i, raw := range rows {
		extracted[i] = extractRow(i+1, raw)
		if extracted[i].phone != "" {
			phones = append(phones, extracted[i].phone)
		}
	}

	var (
		sectors  []repository.Sector
		products []repository.Product
		existing map[string]struct{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sectors, err = s.repo.ListSectors(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		products, err = s.repo.ListProducts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		existing, err = s.dupes.BulkExists(gctx, phones)
		return err
	})
	if err := g.Wait(); err != nil {
		return transport.ImportResultResponse{}, s.internal(ctx, "preload import lookups", err, "poolId", poolID)
	}

	catalog := newCatalogIndex(sectors, products)
	result := transport.ImportResultResponse{ErrorDetails: []transport.ImportRowError{}}
	seen := make(map[string]struct{}, len(extracted))
	staged := make([]repository.CreateLeadParams, 0, len(extracted))

	var defaultSector *uuid.UUID
	resolveDefault := func() (uuid.UUID, error) {
		if defaultSector != nil {
			return *defaultSector, nil
		}
		id, ok := catalog.sector(s.cfg.GetImportDefaultSector())
		if !ok {
			return uuid.Nil, apperr.Internal("default import sector is not configured")
		}
		defaultSector = &id
		return id, nil
	}

	for _, row := range extracted {
		if row.fullName == "" {
			result.ErrorDetails = append(result.ErrorDetails, transport.ImportRowError{Row: row.number, Reason: reasonMissingName})
			continue
		}
		if row.phone == "" {
			result.ErrorDetails = append(result.ErrorDetails, transport.ImportRowError{Row: row.number, Reason: reasonMissingPhone})
			continue
		}
		if _, ok := existing[row.phone]; ok {
			result.Duplicates++
			continue
		}
		if _, ok := seen[row.phone]; ok {
			result.Duplicates++
			continue
		}
		seen[row.phone] = struct{}{}

		sectorID, ok := catalog.sector(row.sector)
		if !ok {
			var err error
			sectorID, err = resolveDefault()
			if err != nil {
				return transport.ImportResultResponse{}, err
			}
		}

		campaignID := pool.CampaignID
		pid := pool.ID
		sid := sectorID
		staged = append(staged, repository.CreateLeadParams{
			FullName:    row.fullName,
			PhoneNumber: row.phone,
			SectorID:    &sid,
			CampaignID:  &campaignID,
			PoolID:      &pid,
			Source:      domain.SourceImport,
			ProductIDs:  catalog.productIDs(row.products),
		})
	}

	created := make([]string, 0, len(staged))
	err := s.repo.WithTx(ctx, func(q repository.DBTX) error {
		created = created[:0]
		for _, p := range staged {
			id, ok, err := s.repo.InsertLeadIfAbsent(ctx, q, p)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := s.repo.LinkProducts(ctx, q, id, p.ProductIDs); err != nil {
				return err
			}
			created = append(created, p.PhoneNumber)
		}
		return s.repo.IncrementLeadCount(ctx, q, pool.CampaignID, len(created))
	})
	if err != nil {
		return transport.ImportResultResponse{}, s.internal(ctx, "insert imported leads", err, "poolId", poolID)
	}

	// Rows that lost a race with a concurrent insert are duplicates too.
	result.Duplicates += len(staged) - len(created)
	result.Imported = len(created)
	result.Errors = len(result.ErrorDetails)

	s.dupes.Remember(ctx, created)
	s.bus.Publish(ctx, events.PoolLeadsImported{
		BaseEvent:  events.NewBaseEvent(),
		PoolID:     pool.ID,
		CampaignID: pool.CampaignID,
		ImportedBy: actorID,
		Imported:   result.Imported,
		Duplicates: result.Duplicates,
		Errors:     result.Errors,
	})

	return result, nil
}

// ImportFile parses an uploaded CSV or XLSX sheet, archives it when object
// storage is configured, and imports its rows.
func (s *Service) ImportFile(ctx context.Context, poolID uuid.UUID, fileName string, content []byte, actorID *uuid.UUID) (transport.ImportResultResponse, error) {
	pool, err := s.getPool(ctx, nil, poolID)
	if err != nil {
		return transport.ImportResultResponse{}, err
	}

	rows, err := importfile.Parse(fileName, bytes.NewReader(content))
	if err != nil {
		switch {
		case errors.Is(err, importfile.ErrUnsupportedFormat):
			return transport.ImportResultResponse{}, apperr.Validation("only .csv and .xlsx files are supported")
		case errors.Is(err, importfile.ErrNoHeader):
			return transport.ImportResultResponse{}, apperr.Validation("file has no header row")
		default:
			return transport.ImportResultResponse{}, apperr.Wrap(apperr.KindValidation, "file could not be read", err)
		}
	}
	if len(rows) == 0 {
		return transport.ImportResultResponse{}, apperr.Validation("file has no data rows")
	}
	if err := s.checkRowLimit(len(rows)); err != nil {
		return transport.ImportResultResponse{}, err
	}

	var sourceKey string
	if s.archiver != nil {
		folder := "pools/" + poolID.String()
		sourceKey, err = s.archiver.ArchiveImport(ctx, folder, fileName, bytes.NewReader(content), int64(len(content)))
		if err != nil {
			// Archiving is best-effort.
			if s.log != nil {
				s.log.WithContext(ctx).Warn("import file archive failed", "poolId", poolID, "file", fileName, "error", err)
			}
			sourceKey = ""
		}
	}

	result, err := s.bulkImport(ctx, pool, rows, actorID)
	if err != nil {
		return transport.ImportResultResponse{}, err
	}
	result.SourceKey = sourceKey
	return result, nil
}
