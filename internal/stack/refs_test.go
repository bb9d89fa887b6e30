package stack

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollectRefs(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		ref    []string
		getAtt []string
	}{
		{
			name:  "ref",
			input: map[string]any{"VpcId": map[string]any{"Ref": "RDSVPC"}},
			ref:   []string{"RDSVPC"},
		},
		{
			name:  "pseudo parameter skipped",
			input: map[string]any{"Ref": "AWS::StackId"},
		},
		{
			name:   "getatt list",
			input:  []any{map[string]any{"Fn::GetAtt": []any{"RdsSecurityGroup", "GroupId"}}},
			getAtt: []string{"RdsSecurityGroup"},
		},
		{
			name:   "getatt dotted string",
			input:  map[string]any{"Fn::GetAtt": "RdsInstance.Endpoint.Address"},
			getAtt: []string{"RdsInstance"},
		},
		{
			name:   "sub string",
			input:  map[string]any{"Fn::Sub": "arn:${AWS::Partition}:x:${RDSVPC}:${RdsInstance.Endpoint.Port}:${!Literal}"},
			ref:    []string{"RDSVPC"},
			getAtt: []string{"RdsInstance"},
		},
		{
			name: "sub with local vars",
			input: map[string]any{"Fn::Sub": []any{
				"${Local}-${RDSVPC}",
				map[string]any{"Local": map[string]any{"Ref": "KeyPairRDS"}},
			}},
			ref: []string{"KeyPairRDS", "RDSVPC"},
		},
		{
			name: "nested join",
			input: map[string]any{"Fn::Join": []any{"", []any{
				"{{resolve:secretsmanager:",
				map[string]any{"Ref": "RdsCredentialsSecret"},
				":SecretString:password::}}",
			}}},
			ref: []string{"RdsCredentialsSecret"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collectRefs(tt.input)
			assert.ElementsMatch(t, tt.ref, got.ref)
			assert.ElementsMatch(t, tt.getAtt, got.getAtt)
		})
	}
}

func TestSortedUniq(t *testing.T) {
	assert.Nil(t, sortedUniq(nil))
	assert.Equal(t, []string{"A", "B"}, sortedUniq([]string{"B", "A", "B"}))
}
