package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistory(t *testing.T) {
	var h History
	assert.Equal(t, Route(""), h.Current())

	h.Navigate(RouteForm)
	h.Navigate(RouteList)

	assert.Equal(t, RouteList, h.Current())
	assert.Equal(t, []Route{RouteForm, RouteList}, h.Routes())

	routes := h.Routes()
	routes[0] = "/elsewhere"
	assert.Equal(t, RouteForm, h.Routes()[0])
}
