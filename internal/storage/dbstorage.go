package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/bookhub/elib/internal/domain/consts"
	"github.com/bookhub/elib/internal/domain/models"
	"github.com/bookhub/elib/internal/logger"
	storerrros "github.com/bookhub/elib/internal/storage/errors"
)

type DBStorage struct {
	pool *pgxpool.Pool
}

func NewDB(ctx context.Context, addr string) (*DBStorage, error) {
	config, err := pgxpool.ParseConfig(addr)
	if err != nil {
		return nil, err
	}
	config.MaxConns = 20
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	return &DBStorage{pool: pool}, nil
}

func (dbs *DBStorage) SaveBook(book models.Book) (string, error) {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(context.Background(), consts.DBCtxTimeout)
	defer cancel()

	bid := uuid.New().String()
	now := time.Now().UTC()
	_, err := dbs.pool.Exec(ctx,
		`INSERT INTO books (bid, title, genre, description, author, cover_url, file_url, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		bid, book.Title, book.Genre, book.Desc, book.Author.ID, book.CoverURL, book.FileURL, now, now)
	if err != nil {
		log.Error().Err(err).Msg("save book failed")
		return "", err
	}
	return bid, nil
}

const bookColumns = `b.bid, b.title, b.genre, b.description, b.author, u.name, b.cover_url, b.file_url, b.created_at, b.updated_at`

func scanBook(row pgx.Row) (models.Book, error) {
	var book models.Book
	err := row.Scan(&book.BID, &book.Title, &book.Genre, &book.Desc,
		&book.Author.ID, &book.Author.Name, &book.CoverURL, &book.FileURL,
		&book.CreatedAt, &book.UpdatedAt)
	return book, err
}

func (dbs *DBStorage) GetBook(bid string) (models.Book, error) {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(context.Background(), consts.DBCtxTimeout)
	defer cancel()

	row := dbs.pool.QueryRow(ctx,
		`SELECT `+bookColumns+` FROM books b JOIN users u ON u.uid = b.author WHERE b.bid = $1`, bid)
	book, err := scanBook(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Book{}, storerrros.ErrBookNoExist
		}
		log.Error().Err(err).Msg("failed to scan data from db")
		return models.Book{}, err
	}
	return book, nil
}

func (dbs *DBStorage) UpdateBook(book models.Book) (models.Book, error) {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(context.Background(), consts.DBCtxTimeout)
	defer cancel()

	res, err := dbs.pool.Exec(ctx,
		`UPDATE books SET title = $2, genre = $3, description = $4, cover_url = $5, file_url = $6, updated_at = $7
        WHERE bid = $1`,
		book.BID, book.Title, book.Genre, book.Desc, book.CoverURL, book.FileURL, time.Now().UTC())
	if err != nil {
		log.Error().Err(err).Msg("update book failed")
		return models.Book{}, err
	}
	if res.RowsAffected() == 0 {
		return models.Book{}, storerrros.ErrBookNoExist
	}
	return dbs.GetBook(book.BID)
}

func (dbs *DBStorage) DeleteBook(bid string) error {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(context.Background(), consts.DBCtxTimeout)
	defer cancel()

	res, err := dbs.pool.Exec(ctx, "DELETE FROM books WHERE bid = $1", bid)
	if err != nil {
		log.Error().Err(err).Msg("failed to delete book")
		return err
	}
	if res.RowsAffected() == 0 {
		log.Warn().Str("bid", bid).Msg("book not found")
		return storerrros.ErrBookNoExist
	}
	log.Info().Str("bid", bid).Msg("book deleted successfully")
	return nil
}

func (dbs *DBStorage) CountBooks(authorID string) (int, error) {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(context.Background(), consts.DBCtxTimeout)
	defer cancel()

	var total int
	err := dbs.pool.QueryRow(ctx, `SELECT count(*) FROM books WHERE author = $1`, authorID).Scan(&total)
	if err != nil {
		log.Error().Err(err).Msg("failed to count books")
		return 0, err
	}
	return total, nil
}

func (dbs *DBStorage) GetBooksPage(authorID string, limit, offset int) ([]models.Book, error) {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(context.Background(), consts.DBCtxTimeout)
	defer cancel()

	rows, err := dbs.pool.Query(ctx,
		`SELECT `+bookColumns+` FROM books b JOIN users u ON u.uid = b.author
        WHERE b.author = $1 ORDER BY b.created_at DESC LIMIT $2 OFFSET $3`,
		authorID, limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("failed to get books from db")
		return nil, err
	}
	defer rows.Close()

	var books []models.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			log.Error().Err(err).Msg("failed to scan data from db")
			return nil, err
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

func (dbs *DBStorage) SaveUser(user models.User) (string, error) {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(context.Background(), consts.DBCtxTimeout)
	defer cancel()

	var existing string
	row := dbs.pool.QueryRow(ctx, "SELECT email FROM users WHERE email = $1", user.Email)
	if err := row.Scan(&existing); err == nil {
		return "", storerrros.ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(user.Pass), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("save user failed")
		return "", err
	}

	userUUID := uuid.New().String()
	_, err = dbs.pool.Exec(ctx,
		"INSERT INTO users (uid, name, email, pass, created_at) VALUES ($1, $2, $3, $4, $5)",
		userUUID, user.Name, user.Email, string(hash), time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return "", storerrros.ErrUserExists
		}
		log.Error().Err(err).Msg("failed to insert user")
		return "", err
	}
	return userUUID, nil
}

func (dbs *DBStorage) ValidUser(email, pass string) (string, error) {
	log := logger.Get()
	ctx, cancel := context.WithTimeout(context.Background(), consts.DBCtxTimeout)
	defer cancel()

	var uid, hash string
	row := dbs.pool.QueryRow(ctx, "SELECT uid, pass FROM users WHERE email = $1", email)
	if err := row.Scan(&uid, &hash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", storerrros.ErrUserNoExist
		}
		log.Error().Err(err).Msg("failed scan db data")
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass)); err != nil {
		log.Error().Err(err).Msg("failed compare hash and password")
		return "", storerrros.ErrInvalidPassword
	}
	return uid, nil
}

func Migrations(dbDsn string, migrationsPath string) error {
	log := logger.Get()
	migratePath := fmt.Sprintf("file://%s", migrationsPath)
	m, err := migrate.New(migratePath, dbDsn)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info().Msg("no migrations apply")
			return nil
		}
		return err
	}
	log.Info().Msg("all migrations apply")
	return nil
}
