package storage

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bookhub/elib/internal/domain/models"
	storerrros "github.com/bookhub/elib/internal/storage/errors"
)

func seedUser(t *testing.T, ms *MemStorage, name, email string) string {
	t.Helper()
	uid, err := ms.SaveUser(models.User{Name: name, Email: email, Pass: "secret123"})
	assert.NoError(t, err)
	return uid
}

func TestMemStorage_users(t *testing.T) {
	ms := New()

	uid := seedUser(t, ms, "Frank", "frank@example.com")

	t.Run("duplicate email rejected", func(t *testing.T) {
		_, err := ms.SaveUser(models.User{Name: "Other", Email: "frank@example.com", Pass: "secret123"})
		assert.ErrorIs(t, err, storerrros.ErrUserExists)
	})

	t.Run("valid credentials", func(t *testing.T) {
		got, err := ms.ValidUser("frank@example.com", "secret123")
		assert.NoError(t, err)
		assert.Equal(t, uid, got)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := ms.ValidUser("frank@example.com", "wrongpass")
		assert.ErrorIs(t, err, storerrros.ErrInvalidPassword)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := ms.ValidUser("ghost@example.com", "secret123")
		assert.ErrorIs(t, err, storerrros.ErrUserNoExist)
	})
}

func TestMemStorage_books(t *testing.T) {
	ms := New()
	uid := seedUser(t, ms, "Frank", "frank@example.com")
	other := seedUser(t, ms, "Kevin", "kevin@example.com")

	titles := []string{"Dune", "Dune Messiah", "Children of Dune"}
	for _, title := range titles {
		_, err := ms.SaveBook(models.Book{
			Title:  title,
			Genre:  "scifi",
			Desc:   "desc",
			Author: models.Author{ID: uid},
		})
		assert.NoError(t, err)
	}
	otherBID, err := ms.SaveBook(models.Book{
		Title:  "Unrelated",
		Genre:  "fantasy",
		Desc:   "desc",
		Author: models.Author{ID: other},
	})
	assert.NoError(t, err)

	t.Run("count is per author", func(t *testing.T) {
		total, err := ms.CountBooks(uid)
		assert.NoError(t, err)
		assert.Equal(t, 3, total)
	})

	t.Run("page is newest first and author scoped", func(t *testing.T) {
		books, err := ms.GetBooksPage(uid, 2, 0)
		assert.NoError(t, err)
		assert.Len(t, books, 2)
		assert.Equal(t, "Children of Dune", books[0].Title)
		assert.Equal(t, "Dune Messiah", books[1].Title)
		for _, book := range books {
			assert.Equal(t, uid, book.Author.ID)
			assert.Equal(t, "Frank", book.Author.Name)
		}
	})

	t.Run("offset past the end", func(t *testing.T) {
		books, err := ms.GetBooksPage(uid, 10, 10)
		assert.NoError(t, err)
		assert.Empty(t, books)
	})

	t.Run("get populates author name", func(t *testing.T) {
		book, err := ms.GetBook(otherBID)
		assert.NoError(t, err)
		assert.Equal(t, "Kevin", book.Author.Name)
	})

	t.Run("update replaces fields", func(t *testing.T) {
		book, err := ms.GetBook(otherBID)
		assert.NoError(t, err)
		book.Title = "Renamed"
		book.CoverURL = "https://example.com/book-covers/new.png"

		updated, err := ms.UpdateBook(book)
		assert.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Title)
		assert.Equal(t, "https://example.com/book-covers/new.png", updated.CoverURL)
	})

	t.Run("delete unknown book", func(t *testing.T) {
		err := ms.DeleteBook("missing")
		assert.ErrorIs(t, err, storerrros.ErrBookNoExist)
	})

	t.Run("delete", func(t *testing.T) {
		assert.NoError(t, ms.DeleteBook(otherBID))
		_, err := ms.GetBook(otherBID)
		assert.ErrorIs(t, err, storerrros.ErrBookNoExist)
	})
}

// Run with -race: handlers hit the store from concurrent goroutines.
func TestMemStorage_concurrentAccess(t *testing.T) {
	ms := New()
	uid := seedUser(t, ms, "Frank", "frank@example.com")

	const (
		goroutines    = 8
		booksPerGorot = 5
	)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < booksPerGorot; i++ {
				_, err := ms.SaveBook(models.Book{
					Title:  fmt.Sprintf("Book %d-%d", g, i),
					Genre:  "scifi",
					Desc:   "desc",
					Author: models.Author{ID: uid},
				})
				assert.NoError(t, err)
				_, err = ms.CountBooks(uid)
				assert.NoError(t, err)
				_, err = ms.GetBooksPage(uid, 10, 0)
				assert.NoError(t, err)
			}
		}(g)
	}
	wg.Wait()

	total, err := ms.CountBooks(uid)
	assert.NoError(t, err)
	assert.Equal(t, goroutines*booksPerGorot, total)
}
