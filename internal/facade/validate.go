package facade

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nodalmind/memoria/internal/errs"
	"github.com/nodalmind/memoria/pkg/types"
)

// validate is shared across tool calls; go-playground/validator's Validate
// is safe for concurrent use once struct-level rules are registered, which
// this package does not need.
var validate = validator.New()

// validationError renders a validator.ValidationErrors into the
// "<path>: <message>" list format spec.md §6.1 requires for InvalidParams.
func validationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errs.InvalidParamsf("%v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q constraint", fe.Namespace(), fe.Tag()))
	}
	return errs.InvalidParamsf("%s", strings.Join(msgs, "; "))
}

// sanitizeTags applies spec.md §6.1's tag alphanumerization and length caps,
// returning a new slice without the tags that become empty after
// sanitization.
func sanitizeTags(tags []string) []string {
	if len(tags) == 0 {
		return tags
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		clean := types.SanitizeTag(t)
		if clean != "" {
			out = append(out, clean)
		}
	}
	return out
}

// sanitizeUserContext defaults an empty user_context and truncates an
// over-long one (spec.md §6.4 MAX_USER_CONTEXT_LENGTH).
func sanitizeUserContext(uc string) string {
	uc = types.SanitizeText(uc)
	if uc == "" {
		return types.DefaultUserContext
	}
	if len(uc) > types.MaxUserContextLen {
		uc = uc[:types.MaxUserContextLen]
	}
	return uc
}

// checkContentSize enforces spec.md §6.1's 1 MiB content cap on the
// canonical JSON serialization of an arbitrary content value.
func checkContentSize(content interface{}) error {
	size, err := contentByteSize(content)
	if err != nil {
		return errs.InvalidParamsf("content: %v", err)
	}
	if size > types.MaxContentBytes {
		return errs.InvalidParamsf("content: exceeds %d byte limit", types.MaxContentBytes)
	}
	return nil
}
