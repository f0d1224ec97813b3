package exports

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_PutGet(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Put("acme-111111111111-us-west-2-SharedTgwId", "SharedTgwStack", "tgw"))
	require.NoError(t, r.Put("gheConnectionArn", "GheConnectionStack", "arn"))

	e, ok := r.Get("gheConnectionArn")
	require.True(t, ok)
	assert.Equal(t, "GheConnectionStack", e.Stack)
	assert.Equal(t, "arn", e.Value)

	_, ok = r.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"acme-111111111111-us-west-2-SharedTgwId", "gheConnectionArn"}, r.Names())
	assert.Equal(t, []string{"gheConnectionArn"}, r.ByStack("GheConnectionStack"))
	assert.Empty(t, r.ByStack("VpcStack"))
}

func TestRegistry_Collision(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Put("gheConnectionArn", "GheConnectionStack", "first"))

	err := r.Put("gheConnectionArn", "OtherStack", "second")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCollision))
	assert.Contains(t, err.Error(), "GheConnectionStack")

	e, _ := r.Get("gheConnectionArn")
	assert.Equal(t, "first", e.Value)
}

func TestRegistry_EmptyName(t *testing.T) {
	assert.Error(t, NewRegistry().Put("", "Stack", 1))
}

func TestImport(t *testing.T) {
	data, err := json.Marshal(Import("gheConnectionArn"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Fn::ImportValue":"gheConnectionArn"}`, string(data))
}

func TestRegistry_Conflicts(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Put("acme-111111111111-us-west-2-VpcId", "SharedVpcStack", "vpc"))
	require.NoError(t, r.Put("acme-111111111111-us-west-2-SharedTgwId", "SharedTgwStack", "tgw"))
	require.NoError(t, r.Put("gheConnectionArn", "GheConnectionStack", "arn"))

	conflicts := r.Conflicts(map[string]string{
		"acme-111111111111-us-west-2-SharedTgwId": "SharedTgwStack",
		"gheConnectionArn":                        "LegacyConnectionStack",
		"unrelated":                               "SomeStack",
	})
	assert.Equal(t, []Conflict{{Name: "gheConnectionArn", Stack: "GheConnectionStack", LiveStack: "LegacyConnectionStack"}}, conflicts)
	assert.Empty(t, r.Conflicts(nil))
}
