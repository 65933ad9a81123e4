// Package postgres implements the registry store over the shared
// case-records database using pgx. All multi-id reads are single batched
// statements with = ANY($1) arrays; the per-row fetch loop of the legacy
// system is deliberately not reproducible through this interface.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"caseledger/internal/identity/matchkey"
	"caseledger/internal/registry/models"
	"caseledger/pkg/domain"
	"caseledger/pkg/platform/sentinel"
)

//go:embed schema.sql
var schema string

// Store reads the case-records database through a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema applies the read-model DDL. Production runs against the
// schema owned by the records system; this exists for dev mode and the
// integration harness.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const appearanceColumns = `
	id::text, case_id::text, role, name, guardian_name, age, gender,
	contact_number, national_id, address,
	COALESCE(custody, ''), principal_id::text`

func (s *Store) GetAppearance(ctx context.Context, id domain.AppearanceID) (models.PersonAppearance, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+appearanceColumns+` FROM appearances WHERE id = $1`, id.String())
	if err != nil {
		return nil, translate(err, "get appearance")
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, translate(err, "get appearance")
		}
		return nil, sentinel.ErrNotFound
	}
	return scanAppearance(rows)
}

func (s *Store) GetAppearances(ctx context.Context, ids []domain.AppearanceID) (map[domain.AppearanceID]models.PersonAppearance, error) {
	out := make(map[domain.AppearanceID]models.PersonAppearance, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+appearanceColumns+` FROM appearances WHERE id = ANY($1::uuid[])`, idStrings(ids))
	if err != nil {
		return nil, translate(err, "get appearances")
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAppearance(rows)
		if err != nil {
			return nil, err
		}
		out[a.ID()] = a
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "get appearances")
	}
	return out, nil
}

func (s *Store) FindByKey(ctx context.Context, role models.Role, key matchkey.Key, excludeCase *domain.CaseID) ([]models.PersonAppearance, error) {
	var column string
	switch key.Type {
	case matchkey.KeyContact:
		column = "contact_key"
	case matchkey.KeyNationalID:
		column = "national_id_key"
	case matchkey.KeyNameGuardian:
		column = "name_guardian_key"
	default:
		return nil, fmt.Errorf("unknown key type %q", key.Type)
	}

	var exclude *string
	if excludeCase != nil {
		v := excludeCase.String()
		exclude = &v
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+appearanceColumns+`
		 FROM appearances
		 WHERE role = $1 AND `+column+` = $2 AND `+column+` <> ''
		   AND ($3::uuid IS NULL OR case_id <> $3::uuid)
		 ORDER BY id`,
		string(role), key.Value, exclude)
	if err != nil {
		return nil, translate(err, "find by key")
	}
	defer rows.Close()

	var out []models.PersonAppearance
	for rows.Next() {
		a, err := scanAppearance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "find by key")
	}
	return out, nil
}

func (s *Store) GetCaseSummaries(ctx context.Context, ids []domain.CaseID) (map[domain.CaseID]models.CaseSummary, error) {
	out := make(map[domain.CaseID]models.CaseSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, case_number, incident_at, state_code, district_code, station_code, status
		 FROM cases WHERE id = ANY($1::uuid[]) AND active`,
		strs)
	if err != nil {
		return nil, translate(err, "get case summaries")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rawID      string
			cs         models.CaseSummary
			incidentAt time.Time
			status     string
		)
		if err := rows.Scan(&rawID, &cs.CaseNumber, &incidentAt,
			&cs.Jurisdiction.StateCode, &cs.Jurisdiction.DistrictCode, &cs.Jurisdiction.StationCode,
			&status); err != nil {
			return nil, fmt.Errorf("scan case summary: %w", err)
		}
		caseID, err := domain.ParseCaseID(rawID)
		if err != nil {
			return nil, fmt.Errorf("case summary id: %w", err)
		}
		cs.ID = caseID
		cs.IncidentAt = incidentAt
		cs.Status = models.CaseStatus(status)
		out[caseID] = cs
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "get case summaries")
	}
	return out, nil
}

func (s *Store) GetBailGrants(ctx context.Context, accusedIDs []domain.AppearanceID) ([]models.BailGrant, error) {
	if len(accusedIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, case_id::text, accused_id::text, amount, granted_on,
		        order_number, court, surety_name, surety_contact
		 FROM bail_grants WHERE accused_id = ANY($1::uuid[]) ORDER BY id`,
		idStrings(accusedIDs))
	if err != nil {
		return nil, translate(err, "get bail grants")
	}
	defer rows.Close()

	var out []models.BailGrant
	for rows.Next() {
		var (
			g                        models.BailGrant
			rawID, rawCase, rawAccus string
		)
		if err := rows.Scan(&rawID, &rawCase, &rawAccus, &g.Amount, &g.GrantedOn,
			&g.OrderNumber, &g.Court, &g.SuretyName, &g.SuretyContact); err != nil {
			return nil, fmt.Errorf("scan bail grant: %w", err)
		}
		grantID, err := domain.ParseGrantID(rawID)
		if err != nil {
			return nil, fmt.Errorf("bail grant id: %w", err)
		}
		caseID, err := domain.ParseCaseID(rawCase)
		if err != nil {
			return nil, fmt.Errorf("bail grant case id: %w", err)
		}
		accusedID, err := domain.ParseAppearanceID(rawAccus)
		if err != nil {
			return nil, fmt.Errorf("bail grant accused id: %w", err)
		}
		g.ID = grantID
		g.Case = caseID
		g.Accused = accusedID
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "get bail grants")
	}
	return out, nil
}

func (s *Store) ListAccusedByCase(ctx context.Context, caseID domain.CaseID) ([]models.AccusedAppearance, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+appearanceColumns+`
		 FROM appearances WHERE case_id = $1 AND role = 'accused' ORDER BY id`,
		caseID.String())
	if err != nil {
		return nil, translate(err, "list accused by case")
	}
	defer rows.Close()

	var out []models.AccusedAppearance
	for rows.Next() {
		a, err := scanAppearance(rows)
		if err != nil {
			return nil, err
		}
		accused, ok := a.(models.AccusedAppearance)
		if !ok {
			return nil, fmt.Errorf("appearance %s: expected accused role", a.ID())
		}
		out = append(out, accused)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "list accused by case")
	}
	return out, nil
}

// scanAppearance maps one appearance row into the role-tagged variant.
func scanAppearance(rows pgx.Rows) (models.PersonAppearance, error) {
	var (
		rawID, rawCase, role string
		p                    models.Person
		custody              string
		rawPrincipal         *string
	)
	if err := rows.Scan(&rawID, &rawCase, &role,
		&p.Name, &p.GuardianName, &p.Age, &p.Gender,
		&p.ContactNumber, &p.NationalID, &p.Address,
		&custody, &rawPrincipal); err != nil {
		return nil, fmt.Errorf("scan appearance: %w", err)
	}

	appearanceID, err := domain.ParseAppearanceID(rawID)
	if err != nil {
		return nil, fmt.Errorf("appearance id: %w", err)
	}
	caseID, err := domain.ParseCaseID(rawCase)
	if err != nil {
		return nil, fmt.Errorf("appearance case id: %w", err)
	}

	switch models.Role(role) {
	case models.RoleAccused:
		return models.AccusedAppearance{
			AppearanceID: appearanceID,
			Case:         caseID,
			Details:      p,
			Custody:      models.CustodyState(custody),
		}, nil
	case models.RoleSurety:
		var principal *domain.AppearanceID
		if rawPrincipal != nil {
			id, err := domain.ParseAppearanceID(*rawPrincipal)
			if err != nil {
				return nil, fmt.Errorf("surety principal id: %w", err)
			}
			principal = &id
		}
		return models.SuretyAppearance{
			AppearanceID: appearanceID,
			Case:         caseID,
			Details:      p,
			Principal:    principal,
		}, nil
	default:
		return nil, fmt.Errorf("appearance %s: unknown role %q", rawID, role)
	}
}

func idStrings(ids []domain.AppearanceID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// translate folds pgx errors into store sentinels so services never see
// driver details.
func translate(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %v: %w", op, err, sentinel.ErrUnavailable)
}
