package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bookhub/elib/internal/domain/models"
	"github.com/bookhub/elib/internal/logger"
	storerrros "github.com/bookhub/elib/internal/storage/errors"
)

// MemStorage is the in-memory fallback used when the database is
// unreachable. Handlers run on concurrent goroutines, so every access
// goes through mu.
type MemStorage struct {
	mu       sync.RWMutex
	bookStor map[string]models.Book
	userStor map[string]models.User
}

func New() *MemStorage {
	return &MemStorage{
		bookStor: make(map[string]models.Book),
		userStor: make(map[string]models.User),
	}
}

func (ms *MemStorage) SaveBook(book models.Book) (string, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	bid := uuid.New().String()
	book.BID = bid
	now := time.Now().UTC()
	book.CreatedAt = now
	book.UpdatedAt = now
	ms.bookStor[bid] = book
	return bid, nil
}

// getBook expects ms.mu to be held.
func (ms *MemStorage) getBook(bid string) (models.Book, error) {
	book, ok := ms.bookStor[bid]
	if !ok {
		return models.Book{}, storerrros.ErrBookNoExist
	}
	if user, ok := ms.userStor[book.Author.ID]; ok {
		book.Author.Name = user.Name
	}
	return book, nil
}

func (ms *MemStorage) GetBook(bid string) (models.Book, error) {
	log := logger.Get()
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	book, err := ms.getBook(bid)
	if err != nil {
		log.Error().Str("bid", bid).Msg("book not found")
		return models.Book{}, err
	}
	return book, nil
}

func (ms *MemStorage) UpdateBook(book models.Book) (models.Book, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	stored, ok := ms.bookStor[book.BID]
	if !ok {
		return models.Book{}, storerrros.ErrBookNoExist
	}
	stored.Title = book.Title
	stored.Genre = book.Genre
	stored.Desc = book.Desc
	stored.CoverURL = book.CoverURL
	stored.FileURL = book.FileURL
	stored.UpdatedAt = time.Now().UTC()
	ms.bookStor[book.BID] = stored
	return ms.getBook(book.BID)
}

func (ms *MemStorage) DeleteBook(bid string) error {
	log := logger.Get()
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.bookStor[bid]; !exists {
		log.Warn().Str("bid", bid).Msg("book not found")
		return storerrros.ErrBookNoExist
	}
	delete(ms.bookStor, bid)
	return nil
}

func (ms *MemStorage) CountBooks(authorID string) (int, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	total := 0
	for _, book := range ms.bookStor {
		if book.Author.ID == authorID {
			total++
		}
	}
	return total, nil
}

func (ms *MemStorage) GetBooksPage(authorID string, limit, offset int) ([]models.Book, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var books []models.Book
	for _, book := range ms.bookStor {
		if book.Author.ID != authorID {
			continue
		}
		if user, ok := ms.userStor[book.Author.ID]; ok {
			book.Author.Name = user.Name
		}
		books = append(books, book)
	}
	sort.Slice(books, func(i, j int) bool {
		return books[i].CreatedAt.After(books[j].CreatedAt)
	})
	if offset >= len(books) {
		return nil, nil
	}
	books = books[offset:]
	if limit < len(books) {
		books = books[:limit]
	}
	return books, nil
}

func (ms *MemStorage) SaveUser(user models.User) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(user.Pass), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	for _, stored := range ms.userStor {
		if stored.Email == user.Email {
			return "", storerrros.ErrUserExists
		}
	}
	uid := uuid.New().String()
	user.UID = uid
	user.Pass = string(hash)
	ms.userStor[uid] = user
	return uid, nil
}

func (ms *MemStorage) ValidUser(email, pass string) (string, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	for _, user := range ms.userStor {
		if user.Email != email {
			continue
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.Pass), []byte(pass)); err != nil {
			return "", storerrros.ErrInvalidPassword
		}
		return user.UID, nil
	}
	return "", storerrros.ErrUserNoExist
}
