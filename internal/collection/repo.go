package collection

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/julienlmr/gameshelf-backend/internal/games"
	"github.com/julienlmr/gameshelf-backend/pkg/db/models"
	"github.com/julienlmr/gameshelf-backend/pkg/enums"
	"github.com/julienlmr/gameshelf-backend/pkg/pagination"
)

// Repository exposes persistence helpers for collection entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.CollectionItem) error
	FindOwned(ctx context.Context, userID, itemID uuid.UUID) (*models.CollectionItem, error)
	Save(ctx context.Context, item *models.CollectionItem) error
	Delete(ctx context.Context, userID, itemID uuid.UUID) (bool, error)
	ListPage(ctx context.Context, userID uuid.UUID, params ListParams) (ItemsPageDTO, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	CountByStatus(ctx context.Context, userID uuid.UUID, status enums.ItemStatus) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a collection repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, item *models.CollectionItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repositoryImpl) FindOwned(ctx context.Context, userID, itemID uuid.UUID) (*models.CollectionItem, error) {
	var item models.CollectionItem
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", itemID, userID).
		First(&item).
		Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repositoryImpl) Save(ctx context.Context, item *models.CollectionItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, userID, itemID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", itemID, userID).
		Delete(&models.CollectionItem{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListPage returns one page of the user's entries joined with game display
// data, newest first.
func (r *repositoryImpl) ListPage(ctx context.Context, userID uuid.UUID, params ListParams) (ItemsPageDTO, error) {
	normalizedLimit := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)
	cursorValue := strings.TrimSpace(params.Cursor)
	decodedCursor, err := pagination.ParseCursor(cursorValue)
	if err != nil {
		return ItemsPageDTO{}, err
	}

	selectColumns := []string{
		"ci.id AS item_id",
		"ci.game_id",
		"ci.status",
		"ci.buy",
		"ci.rating",
		"ci.notes",
		"ci.created_at AS item_created_at",
		"ci.updated_at AS item_updated_at",
		"g.external_id",
		"g.title",
		"g.cover_url",
		"g.console_name",
		"g.genre",
		"g.release_year",
		"g.created_at AS game_created_at",
	}

	dataQuery := r.db.WithContext(ctx).
		Table("collection_items ci").
		Select(strings.Join(selectColumns, ", ")).
		Joins("JOIN games g ON g.id = ci.game_id").
		Where("ci.user_id = ?", userID)

	statusFilter := strings.TrimSpace(params.Status)
	if statusFilter != "" {
		dataQuery = dataQuery.Where("ci.status = ?", statusFilter)
	}
	if decodedCursor != nil {
		dataQuery = dataQuery.Where("(ci.created_at < ?) OR (ci.created_at = ? AND ci.id < ?)", decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID)
	}

	dataQuery = dataQuery.Order("ci.created_at DESC").Order("ci.id DESC").Limit(limitWithBuffer)

	var records []collectionItemRecord
	if err := dataQuery.Scan(&records).Error; err != nil {
		return ItemsPageDTO{}, err
	}

	resultRows := records
	nextCursor := ""
	if len(records) > normalizedLimit {
		resultRows = records[:normalizedLimit]
		last := resultRows[len(resultRows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.ItemCreatedAt,
			ID:        last.ItemID,
		})
	}

	items := make([]ItemDTO, 0, len(resultRows))
	for _, record := range resultRows {
		items = append(items, record.toDTO())
	}

	totalCount, err := r.countItems(ctx, userID, statusFilter)
	if err != nil {
		return ItemsPageDTO{}, err
	}
	firstCursor, err := r.fetchBoundaryCursor(ctx, userID, statusFilter, true)
	if err != nil {
		return ItemsPageDTO{}, err
	}
	lastCursor, err := r.fetchBoundaryCursor(ctx, userID, statusFilter, false)
	if err != nil {
		return ItemsPageDTO{}, err
	}

	prevCursor := ""
	if cursorValue != "" {
		prevCursor = cursorValue
	}

	return ItemsPageDTO{
		Items: items,
		Pagination: PageMeta{
			Total:   int(totalCount),
			Current: cursorValue,
			First:   firstCursor,
			Last:    lastCursor,
			Prev:    prevCursor,
			Next:    nextCursor,
		},
	}, nil
}

func (r *repositoryImpl) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return r.countItems(ctx, userID, "")
}

func (r *repositoryImpl) CountByStatus(ctx context.Context, userID uuid.UUID, status enums.ItemStatus) (int64, error) {
	return r.countItems(ctx, userID, string(status))
}

func (r *repositoryImpl) countItems(ctx context.Context, userID uuid.UUID, status string) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.CollectionItem{}).
		Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repositoryImpl) fetchBoundaryCursor(ctx context.Context, userID uuid.UUID, status string, ascending bool) (string, error) {
	order := "created_at DESC, id DESC"
	if ascending {
		order = "created_at ASC, id ASC"
	}

	var row struct {
		CreatedAt time.Time
		ID        uuid.UUID
	}

	query := r.db.WithContext(ctx).
		Model(&models.CollectionItem{}).
		Select("created_at", "id").
		Where("user_id = ?", userID).
		Order(order).
		Limit(1)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}

	return pagination.EncodeCursor(pagination.Cursor{
		CreatedAt: row.CreatedAt,
		ID:        row.ID,
	}), nil
}

type collectionItemRecord struct {
	ItemID        uuid.UUID      `gorm:"column:item_id"`
	GameID        uuid.UUID      `gorm:"column:game_id"`
	Status        string         `gorm:"column:status"`
	Buy           sql.NullBool   `gorm:"column:buy"`
	Rating        sql.NullInt64  `gorm:"column:rating"`
	Notes         sql.NullString `gorm:"column:notes"`
	ItemCreatedAt time.Time      `gorm:"column:item_created_at"`
	ItemUpdatedAt time.Time      `gorm:"column:item_updated_at"`
	ExternalID    string         `gorm:"column:external_id"`
	Title         string         `gorm:"column:title"`
	CoverURL      sql.NullString `gorm:"column:cover_url"`
	ConsoleName   string         `gorm:"column:console_name"`
	Genre         sql.NullString `gorm:"column:genre"`
	ReleaseYear   sql.NullInt64  `gorm:"column:release_year"`
	GameCreatedAt time.Time      `gorm:"column:game_created_at"`
}

func (r collectionItemRecord) toDTO() ItemDTO {
	game := games.GameDTO{
		ID:          r.GameID,
		ExternalID:  r.ExternalID,
		Title:       r.Title,
		CoverURL:    nullStringPtr(r.CoverURL),
		ConsoleName: r.ConsoleName,
		Genre:       nullStringPtr(r.Genre),
		ReleaseYear: nullIntPtr(r.ReleaseYear),
		CreatedAt:   r.GameCreatedAt,
	}
	return ItemDTO{
		ID:        r.ItemID,
		GameID:    r.GameID,
		Status:    enums.ItemStatus(r.Status),
		Buy:       r.Buy.Valid && r.Buy.Bool,
		Rating:    nullIntPtr(r.Rating),
		Notes:     nullStringPtr(r.Notes),
		CreatedAt: r.ItemCreatedAt,
		UpdatedAt: r.ItemUpdatedAt,
		Game:      &game,
	}
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}

func nullIntPtr(value sql.NullInt64) *int {
	if !value.Valid {
		return nil
	}
	v := int(value.Int64)
	return &v
}
