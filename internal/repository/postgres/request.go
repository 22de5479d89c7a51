package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/lib/pq"

	"ridebid/internal/domain"
	"ridebid/internal/repository"
)

const requestColumns = `id, requester_id, service_id, vehicle_type,
	pickup_lat, pickup_lng, destination_lat, destination_lng,
	pickup_place, destination_place,
	requester_name, requester_photo, requester_rating, requester_phone, push_token,
	fare, extra_details, otp, status, bids,
	driver_id, driver_fare, driver_photo, driver_name, vehicle, vehicle_plate,
	driver_phone, driver_push_token, driver_rating,
	version, created_at, updated_at`

// RequestRepository is a PostgreSQL implementation of repository.RequestRepository.
// Bids are stored as a JSONB column on the request row.
type RequestRepository struct {
	q Querier
}

// NewRequestRepository creates a new PostgreSQL request repository.
func NewRequestRepository(db *sql.DB) *RequestRepository {
	return &RequestRepository{q: db}
}

// NewRequestRepositoryWithTx creates a request repository using a transaction.
func NewRequestRepositoryWithTx(tx *sql.Tx) *RequestRepository {
	return &RequestRepository{q: tx}
}

// Create persists a new request.
func (r *RequestRepository) Create(ctx context.Context, req *domain.RideRequest) error {
	bids, err := json.Marshal(req.Bids)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO ride_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29,
		        $30, $31, $32)
	`

	_, err = r.q.ExecContext(ctx, query,
		req.ID, req.RequesterID, req.ServiceID, req.VehicleType,
		req.PickupLat, req.PickupLng, req.DestinationLat, req.DestinationLng,
		req.PickupPlace, req.DestinationPlace,
		req.RequesterName, req.RequesterPhoto, req.RequesterRating, req.RequesterPhone, req.PushToken,
		req.Fare, req.ExtraDetails, req.OTP, req.Status, bids,
		nullString(req.Driver.DriverID), req.Driver.Fare, nullString(req.Driver.Photo),
		nullString(req.Driver.Name), nullString(req.Driver.Vehicle), nullString(req.Driver.VehiclePlate),
		nullString(req.Driver.Phone), nullString(req.Driver.PushToken), req.Driver.Rating,
		req.Version, req.CreatedAt, req.UpdatedAt,
	)

	return err
}

// GetByID retrieves a request by ID.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*domain.RideRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM ride_requests WHERE id = $1`

	req, err := scanRequest(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

// GetByIDs retrieves the requests whose IDs are in the given set,
// restricted to the given status.
func (r *RequestRepository) GetByIDs(ctx context.Context, ids []string, status domain.RequestStatus) ([]*domain.RideRequest, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + requestColumns + ` FROM ride_requests WHERE id = ANY($1) AND status = $2`

	rows, err := r.q.QueryContext(ctx, query, pq.Array(ids), status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRequests(rows)
}

// List returns one page of requests, newest first, plus the total count
// matching the filter.
func (r *RequestRepository) List(ctx context.Context, filter repository.ListFilter, limit, offset int) ([]*domain.RideRequest, int, error) {
	where := ""
	args := []any{}
	if filter.Status != "" {
		where = " WHERE status = $1"
		args = append(args, filter.Status)
	}

	var total int
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM ride_requests"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + requestColumns + ` FROM ride_requests` + where +
		" ORDER BY created_at DESC" +
		" LIMIT $" + strconv.Itoa(len(args)+1) + " OFFSET $" + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	reqs, err := scanRequests(rows)
	if err != nil {
		return nil, 0, err
	}
	return reqs, total, nil
}

// ListByUser returns the requests visible to one user.
func (r *RequestRepository) ListByUser(ctx context.Context, scope repository.UserScope) ([]*domain.RideRequest, error) {
	column := "requester_id"
	if scope.IsDriver {
		column = "driver_id"
	}

	query := `SELECT ` + requestColumns + ` FROM ride_requests WHERE ` + column + ` = $1`
	args := []any{scope.UserID}

	switch scope.Filter {
	case "history":
		query += " AND status = ANY($2)"
		args = append(args, pq.Array([]string{
			string(domain.StatusRideCanceled),
			string(domain.StatusRideCompleted),
		}))
	case "running":
		query += " AND status = ANY($2)"
		args = append(args, pq.Array([]string{
			string(domain.StatusPending),
			string(domain.StatusBidding),
			string(domain.StatusRidePlaced),
			string(domain.StatusRideActive),
			string(domain.StatusArrived),
			string(domain.StatusRideInProgress),
		}))
	}

	query += " ORDER BY created_at DESC"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRequests(rows)
}

// Update writes the mutable fields of a request, guarded by the version
// the caller read. Immutable creation-time fields are never touched.
func (r *RequestRepository) Update(ctx context.Context, req *domain.RideRequest) error {
	bids, err := json.Marshal(req.Bids)
	if err != nil {
		return err
	}

	query := `
		UPDATE ride_requests
		SET status = $1, bids = $2,
		    driver_id = $3, driver_fare = $4, driver_photo = $5, driver_name = $6,
		    vehicle = $7, vehicle_plate = $8, driver_phone = $9,
		    driver_push_token = $10, driver_rating = $11,
		    version = version + 1, updated_at = $12
		WHERE id = $13 AND version = $14
	`

	result, err := r.q.ExecContext(ctx, query,
		req.Status, bids,
		nullString(req.Driver.DriverID), req.Driver.Fare, nullString(req.Driver.Photo),
		nullString(req.Driver.Name), nullString(req.Driver.Vehicle), nullString(req.Driver.VehiclePlate),
		nullString(req.Driver.Phone), nullString(req.Driver.PushToken), req.Driver.Rating,
		req.UpdatedAt, req.ID, req.Version,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		// Either the row is gone or someone else won the write.
		if _, err := r.GetByID(ctx, req.ID); err != nil {
			return err
		}
		return repository.ErrVersionConflict
	}

	req.Version++
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*domain.RideRequest, error) {
	var req domain.RideRequest
	var bids []byte
	var driverID, driverPhoto, driverName, vehicle, vehiclePlate, driverPhone, driverPushToken sql.NullString

	err := row.Scan(
		&req.ID, &req.RequesterID, &req.ServiceID, &req.VehicleType,
		&req.PickupLat, &req.PickupLng, &req.DestinationLat, &req.DestinationLng,
		&req.PickupPlace, &req.DestinationPlace,
		&req.RequesterName, &req.RequesterPhoto, &req.RequesterRating, &req.RequesterPhone, &req.PushToken,
		&req.Fare, &req.ExtraDetails, &req.OTP, &req.Status, &bids,
		&driverID, &req.Driver.Fare, &driverPhoto, &driverName, &vehicle, &vehiclePlate,
		&driverPhone, &driverPushToken, &req.Driver.Rating,
		&req.Version, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(bids) > 0 {
		if err := json.Unmarshal(bids, &req.Bids); err != nil {
			return nil, err
		}
	}

	req.Driver.DriverID = driverID.String
	req.Driver.Photo = driverPhoto.String
	req.Driver.Name = driverName.String
	req.Driver.Vehicle = vehicle.String
	req.Driver.VehiclePlate = vehiclePlate.String
	req.Driver.Phone = driverPhone.String
	req.Driver.PushToken = driverPushToken.String

	return &req, nil
}

func scanRequests(rows *sql.Rows) ([]*domain.RideRequest, error) {
	var reqs []*domain.RideRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
