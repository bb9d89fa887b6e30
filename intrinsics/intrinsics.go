// Package intrinsics provides CloudFormation intrinsic functions.
//
// This package re-exports the core intrinsic types from cloudformation-schema-go
// and adds helpers used by the topology declarations.
//
// Core intrinsic functions:
//
//	Ref{"RDSVPC"} → {"Ref": "RDSVPC"}
//	Select{Index: 0, List: GetAZs{}} → {"Fn::Select": [0, {"Fn::GetAZs": ""}]}
//	Split{Delimiter: "/", Source: AWS_STACK_ID} → {"Fn::Split": ["/", {"Ref": "AWS::StackId"}]}
//
// Pseudo-parameters:
//
//	AWS_REGION, AWS_ACCOUNT_ID, AWS_STACK_ID, etc.
package intrinsics

import (
	"github.com/lex00/cloudformation-schema-go/intrinsics"
)

// Re-export core intrinsic types from shared package.
type (
	// Ref represents a CloudFormation Ref intrinsic function.
	Ref = intrinsics.Ref

	// GetAtt represents a CloudFormation Fn::GetAtt intrinsic function.
	GetAtt = intrinsics.GetAtt

	// Sub represents a CloudFormation Fn::Sub intrinsic function.
	Sub = intrinsics.Sub

	// Join represents a CloudFormation Fn::Join intrinsic function.
	Join = intrinsics.Join

	// Select represents a CloudFormation Fn::Select intrinsic function.
	Select = intrinsics.Select

	// Split represents a CloudFormation Fn::Split intrinsic function.
	Split = intrinsics.Split

	// GetAZs represents a CloudFormation Fn::GetAZs intrinsic function.
	GetAZs = intrinsics.GetAZs

	// Tag represents a CloudFormation resource tag.
	Tag = intrinsics.Tag
)

// Json is a shorthand for map[string]any.
type Json = map[string]any

// List creates a typed slice from the given items.
// Avoids verbose slice type annotations in struct literals.
func List[T any](items ...T) []T {
	return items
}

// Any creates a []any slice from the given items.
// Use for fields typed as []any that accept mixed types or intrinsics.
//
// Example:
//
//	SubnetIds: Any(PrivateSubnet1.Ref(), PrivateSubnet2.Ref()),
func Any(items ...any) []any {
	return items
}

// Tags builds a tag list from alternating key/value pairs.
// A trailing key without a value is dropped.
func Tags(pairs ...any) []any {
	tags := make([]any, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			continue
		}
		tags = append(tags, Tag{Key: key, Value: pairs[i+1]})
	}
	return tags
}
