package loadboard

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/freightdesk/freightdesk-backend/pkg/enums"
)

type viewerCount struct{ joined, left int }

func (v *viewerCount) ViewerJoined() { v.joined++ }
func (v *viewerCount) ViewerLeft()   { v.left++ }

func TestHubBroadcastsToEveryViewer(t *testing.T) {
	counts := &viewerCount{}
	hub := NewHub(4, counts)
	a, cancelA := hub.Subscribe()
	b, cancelB := hub.Subscribe()
	defer cancelB()

	change := Change{Op: OpInsert, Indent: card(enums.IndentStatusOpen, 0)}
	hub.Broadcast(change)
	require.Equal(t, change, <-a.C)
	require.Equal(t, change, <-b.C)

	cancelA()
	cancelA()
	_, open := <-a.C
	require.False(t, open)
	require.Equal(t, 1, hub.Viewers())
	require.Equal(t, 2, counts.joined)
	require.Equal(t, 1, counts.left)
}

func TestHubDropsSlowViewer(t *testing.T) {
	hub := NewHub(1, nil)
	slow, cancel := hub.Subscribe()
	defer cancel()

	hub.Broadcast(Change{Op: OpInsert, Indent: card(enums.IndentStatusOpen, 0)})
	hub.Broadcast(Change{Op: OpInsert, Indent: card(enums.IndentStatusOpen, 1)})
	require.Zero(t, hub.Viewers())

	<-slow.C
	_, open := <-slow.C
	require.False(t, open)
}

func TestHubClose(t *testing.T) {
	hub := NewHub(0, nil)
	v, _ := hub.Subscribe()
	hub.Close()
	_, open := <-v.C
	require.False(t, open)
}
