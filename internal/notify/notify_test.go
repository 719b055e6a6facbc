package notify

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInbox_DrainEmptiesQueue(t *testing.T) {
	var inbox Inbox
	ctx := context.Background()

	assert.Empty(t, inbox.Drain())
	assert.NotNil(t, inbox.Drain())

	inbox.Notify(ctx, Info("Produto adicionado", "Livro"))
	inbox.Notify(ctx, Error("Erro no pagamento", "saldo insuficiente"))

	got := inbox.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, VariantDefault, got[0].Variant)
	assert.Equal(t, VariantDestructive, got[1].Variant)
	assert.Empty(t, inbox.Drain())
}

func TestInbox_DropsOldestWhenFull(t *testing.T) {
	var inbox Inbox
	for i := 0; i < maxPending+3; i++ {
		inbox.Notify(context.Background(), Info(fmt.Sprint(i), ""))
	}

	got := inbox.Drain()
	require.Len(t, got, maxPending)
	assert.Equal(t, "3", got[0].Title)
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	var inbox Inbox
	ctx := WithNotifier(context.Background(), &inbox)
	FromContext(ctx).Notify(ctx, Info("ok", ""))
	assert.Len(t, inbox.Drain(), 1)
}
