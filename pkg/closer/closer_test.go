package closer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloserGroup_Close(t *testing.T) {
	var order []string
	named := func(name string, err error) Closer {
		return CloserFunc(func() error {
			order = append(order, name)
			return err
		})
	}

	errDB := errors.New("db")
	errBroker := errors.New("broker")

	group := NewCloserGroup(named("db", errDB), named("cache", nil))
	group.Add(named("broker", errBroker))

	err := group.Close()

	assert.Equal(t, []string{"broker", "cache", "db"}, order)
	assert.ErrorIs(t, err, errDB)
	assert.ErrorIs(t, err, errBroker)

	order = nil
	assert.NoError(t, group.Close())
	assert.Empty(t, order)
}
