package repository

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/goarsip/internal/config"
	"github.com/bigkaa/goarsip/internal/database"
	"github.com/bigkaa/goarsip/internal/domain/model"
)

// setupTestDB запускает PostgreSQL контейнер, применяет миграции.
// Возвращает pgxpool.Pool; контейнер останавливается в t.Cleanup.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("arsip_test"),
		postgres.WithUsername("arsip"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	// Настраиваем env для config.Load()
	t.Setenv("AR_STORAGE", config.StoragePostgres)
	t.Setenv("AR_DB_HOST", host)
	t.Setenv("AR_DB_PORT", port.Port())
	t.Setenv("AR_DB_NAME", "arsip_test")
	t.Setenv("AR_DB_USER", "arsip")
	t.Setenv("AR_DB_PASSWORD", "test-password")
	t.Setenv("AR_DB_SSL_MODE", "disable")
	t.Setenv("AR_JWT_JWKS_URL", "http://localhost:8080/realms/arsip/protocol/openid-connect/certs")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return pool
}

// relation возвращает связь по имени из model.Relations.
func relation(t *testing.T, name string) model.Relation {
	t.Helper()
	for _, r := range model.Relations {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("связь %q не найдена", name)
	return model.Relation{}
}

func ptr[T any](v T) *T { return &v }

// seedUser создаёт пользователя для ссылок created_by.
func seedUser(t *testing.T, ctx context.Context, repos Repositories) *model.User {
	t.Helper()
	u := &model.User{Username: "arsiparis", FullName: "Arsiparis", Role: "archivist", Active: true}
	if err := repos.Users.Create(ctx, u); err != nil {
		t.Fatalf("Users.Create() ошибка: %v", err)
	}
	return u
}

// --- Тесты ClassificationRepository ---

func TestClassificationCRUD(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewClassificationRepository(pool)

	root := &model.ClassificationCode{
		Code:                   "000",
		Description:            "Umum",
		ActiveRetentionYears:   2,
		InactiveRetentionYears: 5,
		FinalDisposition:       model.DispositionPermanent,
		SecurityClassification: model.SecurityNormal,
	}
	if err := repo.Create(ctx, root); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if root.ID == 0 || root.CreatedAt.IsZero() {
		t.Error("ID или CreatedAt не установлены")
	}

	child := &model.ClassificationCode{
		Code:                   "000.1",
		ParentCode:             ptr("000"),
		FinalDisposition:       model.DispositionReappraise,
		SecurityClassification: model.SecurityConfidential,
	}
	if err := repo.Create(ctx, child); err != nil {
		t.Fatalf("Create(child) ошибка: %v", err)
	}

	got, err := repo.GetByCode(ctx, "000.1")
	if err != nil {
		t.Fatalf("GetByCode() ошибка: %v", err)
	}
	if got.ParentCode == nil || *got.ParentCode != "000" {
		t.Errorf("ParentCode = %v, хотели 000", got.ParentCode)
	}
	if got.SecurityClassification != model.SecurityConfidential {
		t.Errorf("SecurityClassification = %q, хотели confidential", got.SecurityClassification)
	}

	roots, err := repo.List(ctx, model.ClassificationFilter{RootOnly: true, Page: model.Page{Number: 1, PerPage: 10}})
	if err != nil {
		t.Fatalf("List(RootOnly) ошибка: %v", err)
	}
	if len(roots) != 1 || roots[0].Code != "000" {
		t.Errorf("List(RootOnly) = %d записей, хотели только 000", len(roots))
	}

	n, err := repo.Count(ctx, model.ClassificationFilter{ParentCode: ptr("000")})
	if err != nil {
		t.Fatalf("Count(ParentCode) ошибка: %v", err)
	}
	if n != 1 {
		t.Errorf("Count(ParentCode) = %d, хотели 1", n)
	}

	all, err := repo.All(ctx)
	if err != nil {
		t.Fatalf("All() ошибка: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("All() = %d, хотели 2", len(all))
	}

	got.Description = "Sub umum"
	got.ParentCode = nil
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update() ошибка: %v", err)
	}
	updated, _ := repo.GetByCode(ctx, "000.1")
	if updated.Description != "Sub umum" || updated.ParentCode != nil {
		t.Errorf("Update не применён: %+v", updated)
	}

	if _, err := repo.GetByCode(ctx, "999"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByCode(999) ошибка = %v, хотели ErrNotFound", err)
	}
}

func TestClassificationConstraints(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewClassificationRepository(pool)

	base := model.ClassificationCode{
		FinalDisposition:       model.DispositionDestroy,
		SecurityClassification: model.SecurityNormal,
	}

	c := base
	c.Code = "100"
	if err := repo.Create(ctx, &c); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	dup := base
	dup.Code = "100"
	err := repo.Create(ctx, &dup)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("дубликат: ошибка = %v, хотели ErrConflict", err)
	}
	if ConstraintOf(err) != ConstraintCodeUnique {
		t.Errorf("ConstraintOf = %q, хотели %q", ConstraintOf(err), ConstraintCodeUnique)
	}

	orphan := base
	orphan.Code = "200.1"
	orphan.ParentCode = ptr("200")
	err = repo.Create(ctx, &orphan)
	if !errors.Is(err, ErrReferenced) {
		t.Fatalf("неизвестный родитель: ошибка = %v, хотели ErrReferenced", err)
	}
	if ConstraintOf(err) != "kode_klasifikasi_parent_fkey" {
		t.Errorf("ConstraintOf = %q, хотели kode_klasifikasi_parent_fkey", ConstraintOf(err))
	}
}

// --- Тесты ReferenceRepository ---

func TestReferencePolicies(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repos := NewRepositories(pool)

	code := &model.ClassificationCode{Code: "300", FinalDisposition: model.DispositionDestroy, SecurityClassification: model.SecurityNormal}
	if err := repos.Codes.Create(ctx, code); err != nil {
		t.Fatalf("Codes.Create() ошибка: %v", err)
	}
	file := &model.ArchiveFile{Name: "Berkas 300", ClassificationCode: "300"}
	if err := repos.Files.Create(ctx, file); err != nil {
		t.Fatalf("Files.Create() ошибка: %v", err)
	}
	unit := &model.ArchiveUnit{
		ClassificationCode: ptr("300"),
		ArchiveFileID:      &file.ID,
		Amount:             0,
		AmountUnit:         "lembar",
		Status:             model.StatusPending,
		PublishStatus:      model.PublishDraft,
	}
	if err := repos.ArchiveUnits.Create(ctx, unit); err != nil {
		t.Fatalf("ArchiveUnits.Create() ошибка: %v", err)
	}

	t.Run("Count и Keys", func(t *testing.T) {
		n, err := repos.References.Count(ctx, relation(t, "file_code"), "300")
		if err != nil {
			t.Fatalf("Count() ошибка: %v", err)
		}
		if n != 1 {
			t.Errorf("Count(file_code) = %d, хотели 1", n)
		}

		keys, err := repos.References.Keys(ctx, relation(t, "unit_archive_file"), file.ID)
		if err != nil {
			t.Fatalf("Keys() ошибка: %v", err)
		}
		if len(keys) != 1 || keys[0] != unit.ID {
			t.Errorf("Keys(unit_archive_file) = %v, хотели [%d]", keys, unit.ID)
		}
	})

	t.Run("restrict в базе", func(t *testing.T) {
		err := repos.References.Delete(ctx, model.TableClassificationCodes, "300")
		if !errors.Is(err, ErrReferenced) {
			t.Fatalf("Delete(code) ошибка = %v, хотели ErrReferenced", err)
		}
		if ConstraintOf(err) != "berkas_arsip_code_fkey" {
			t.Errorf("ConstraintOf = %q, хотели berkas_arsip_code_fkey", ConstraintOf(err))
		}
	})

	t.Run("Clear обнуляет ссылки", func(t *testing.T) {
		n, err := repos.References.Clear(ctx, relation(t, "unit_code"), "300")
		if err != nil {
			t.Fatalf("Clear() ошибка: %v", err)
		}
		if n != 1 {
			t.Errorf("Clear(unit_code) = %d, хотели 1", n)
		}
		got, _ := repos.ArchiveUnits.GetByID(ctx, unit.ID)
		if got.ClassificationCode != nil {
			t.Errorf("ClassificationCode = %v, хотели nil", *got.ClassificationCode)
		}
	})

	t.Run("Delete несуществующей строки", func(t *testing.T) {
		err := repos.References.Delete(ctx, model.TableArchiveFiles, int64(99999))
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Delete() ошибка = %v, хотели ErrNotFound", err)
		}
	})
}

// --- Тесты ArchiveUnitRepository ---

func TestArchiveUnitStatuses(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repos := NewRepositories(pool)
	user := seedUser(t, ctx, repos)

	unit := &model.ArchiveUnit{
		Amount:        3,
		AmountUnit:    "berkas",
		Location:      model.Location{Room: "R1", Box: "B-07"},
		Status:        model.StatusPending,
		PublishStatus: model.PublishDraft,
		CreatedBy:     &user.ID,
	}
	if err := repos.ArchiveUnits.Create(ctx, unit); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	if err := repos.ArchiveUnits.SetPublishStatus(ctx, unit.ID, model.PublishPublished); err != nil {
		t.Fatalf("SetPublishStatus() ошибка: %v", err)
	}
	verifiedAt := time.Now().UTC().Truncate(time.Second)
	if err := repos.ArchiveUnits.SetStatus(ctx, unit.ID, model.StatusAccepted, user.ID, verifiedAt, ptr("lengkap")); err != nil {
		t.Fatalf("SetStatus() ошибка: %v", err)
	}

	got, err := repos.ArchiveUnits.GetByID(ctx, unit.ID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.Status != model.StatusAccepted {
		t.Errorf("Status = %q, хотели diterima", got.Status)
	}
	if got.PublishStatus != model.PublishPublished {
		t.Errorf("PublishStatus = %q, хотели published", got.PublishStatus)
	}
	if got.VerifiedBy == nil || *got.VerifiedBy != user.ID {
		t.Errorf("VerifiedBy = %v, хотели %d", got.VerifiedBy, user.ID)
	}
	if got.Location.Box != "B-07" {
		t.Errorf("Location.Box = %q, хотели B-07", got.Location.Box)
	}

	// Update не трогает статусы
	got.Description = "Surat keputusan"
	if err := repos.ArchiveUnits.Update(ctx, got); err != nil {
		t.Fatalf("Update() ошибка: %v", err)
	}
	after, _ := repos.ArchiveUnits.GetByID(ctx, unit.ID)
	if after.Status != model.StatusAccepted || after.PublishStatus != model.PublishPublished {
		t.Errorf("Update изменил статусы: %q / %q", after.Status, after.PublishStatus)
	}

	published := model.PublishPublished
	n, err := repos.ArchiveUnits.Count(ctx, model.ArchiveUnitFilter{PublishStatus: &published, Search: "keputusan"})
	if err != nil {
		t.Fatalf("Count() ошибка: %v", err)
	}
	if n != 1 {
		t.Errorf("Count(published, keputusan) = %d, хотели 1", n)
	}

	if err := repos.ArchiveUnits.SetStatus(ctx, 99999, model.StatusRejected, user.ID, verifiedAt, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetStatus(99999) ошибка = %v, хотели ErrNotFound", err)
	}
}

// --- Тесты HandoverRepository ---

func TestHandoverItems(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repos := NewRepositories(pool)
	user := seedUser(t, ctx, repos)

	origin := &model.ProcessingUnit{Name: "Bagian Umum"}
	if err := repos.Units.Create(ctx, origin); err != nil {
		t.Fatalf("Units.Create() ошибка: %v", err)
	}
	unit := &model.ArchiveUnit{Amount: 1, AmountUnit: "box", Status: model.StatusPending, PublishStatus: model.PublishDraft}
	if err := repos.ArchiveUnits.Create(ctx, unit); err != nil {
		t.Fatalf("ArchiveUnits.Create() ошибка: %v", err)
	}

	h := &model.HandoverRecord{
		Number:        "BA-001",
		Date:          time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		OriginUnitID:  origin.ID,
		RecipientName: ptr("Arsip Nasional"),
		CreatedBy:     user.ID,
	}
	if err := repos.Handovers.Create(ctx, h); err != nil {
		t.Fatalf("Handovers.Create() ошибка: %v", err)
	}

	dup := *h
	err := repos.Handovers.Create(ctx, &dup)
	if !errors.Is(err, ErrConflict) || ConstraintOf(err) != ConstraintHandoverNumberUnique {
		t.Errorf("дубликат номера: ошибка = %v, хотели %s", err, ConstraintHandoverNumberUnique)
	}

	if err := repos.Handovers.AddItem(ctx, &model.HandoverItem{HandoverID: h.ID, ArchiveUnitID: unit.ID}); err != nil {
		t.Fatalf("AddItem() ошибка: %v", err)
	}
	err = repos.Handovers.AddItem(ctx, &model.HandoverItem{HandoverID: h.ID, ArchiveUnitID: unit.ID})
	if !errors.Is(err, ErrConflict) || ConstraintOf(err) != ConstraintHandoverItemUnique {
		t.Errorf("дубликат позиции: ошибка = %v, хотели %s", err, ConstraintHandoverItemUnique)
	}

	has, err := repos.Handovers.HasItem(ctx, h.ID, unit.ID)
	if err != nil || !has {
		t.Errorf("HasItem() = %v, %v, хотели true", has, err)
	}

	got, err := repos.Handovers.GetByID(ctx, h.ID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.ItemCount != 1 {
		t.Errorf("ItemCount = %d, хотели 1", got.ItemCount)
	}

	// Единица хранения в акте не удаляется на уровне БД
	err = repos.References.Delete(ctx, model.TableArchiveUnits, unit.ID)
	if !errors.Is(err, ErrReferenced) {
		t.Errorf("Delete(arsip_unit) ошибка = %v, хотели ErrReferenced", err)
	}

	if err := repos.Handovers.RemoveItem(ctx, h.ID, unit.ID); err != nil {
		t.Fatalf("RemoveItem() ошибка: %v", err)
	}
	if err := repos.Handovers.RemoveItem(ctx, h.ID, unit.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторный RemoveItem() ошибка = %v, хотели ErrNotFound", err)
	}
}

// --- Тесты Store ---

func TestPostgresStoreRollback(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	store := NewPostgresStore(pool)

	errBoom := errors.New("boom")
	err := store.RunInTx(ctx, func(r Repositories) error {
		c := &model.Category{Name: "Surat"}
		if err := r.Categories.Create(ctx, c); err != nil {
			return err
		}
		if err := r.SubCategories.Create(ctx, &model.SubCategory{CategoryID: c.ID, Name: "Surat Masuk"}); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("RunInTx() ошибка = %v, хотели errBoom", err)
	}

	n, err := store.Repositories().Categories.Count(ctx, model.TaxonomyFilter{})
	if err != nil {
		t.Fatalf("Count() ошибка: %v", err)
	}
	if n != 0 {
		t.Errorf("после отката категорий = %d, хотели 0", n)
	}
}

func TestStatistics(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repos := NewRepositories(pool)

	unitA := &model.ProcessingUnit{Name: "A"}
	if err := repos.Units.Create(ctx, unitA); err != nil {
		t.Fatalf("Units.Create() ошибка: %v", err)
	}
	for i, publish := range []model.PublishStatus{model.PublishDraft, model.PublishPublished, model.PublishDraft} {
		u := &model.ArchiveUnit{Amount: i, AmountUnit: "lembar", Status: model.StatusPending, PublishStatus: publish}
		if i == 0 {
			u.ProcessingUnitID = &unitA.ID
		}
		if err := repos.ArchiveUnits.Create(ctx, u); err != nil {
			t.Fatalf("ArchiveUnits.Create() ошибка: %v", err)
		}
	}

	tests := []struct {
		name string
		v    model.Visibility
		want int
	}{
		{"все", model.Visibility{All: true}, 3},
		{"подразделение A", model.Visibility{ProcessingUnitID: &unitA.ID}, 2},
		{"только опубликованные", model.Visibility{}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := repos.Stats.Statistics(ctx, tt.v)
			if err != nil {
				t.Fatalf("Statistics() ошибка: %v", err)
			}
			if st.ArchiveUnits != tt.want {
				t.Errorf("ArchiveUnits = %d, хотели %d", st.ArchiveUnits, tt.want)
			}
			if st.ProcessingUnits != 1 {
				t.Errorf("ProcessingUnits = %d, хотели 1", st.ProcessingUnits)
			}
		})
	}
}
