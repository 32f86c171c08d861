package call

import (
	"context"
	"fmt"

	"github.com/abdul-hamid-achik/hitcall/packages/http"
)

// Error is the error returned by Await for a call that ended in OnError.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("call failed with code %d: %s", e.Code, e.Message)
}

type result[T any] struct {
	data T
	err  error
}

// Await executes req and blocks until its callback fires. A failed call
// returns a *Error carrying the code and message OnError would have seen.
func Await[T any](ctx context.Context, req *http.Request) (T, error) {
	done := make(chan result[T], 1)
	New[T](req).ExecuteContext(ctx, Funcs[T]{
		Success: func(data T) {
			done <- result[T]{data: data}
		},
		Error: func(code int, message string) {
			done <- result[T]{err: &Error{Code: code, Message: message}}
		},
	})
	r := <-done
	return r.data, r.err
}
