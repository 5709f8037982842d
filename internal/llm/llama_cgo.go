//go:build llama

package llm

// cgo link directives for the in-process llama backend.
//   - rpath of $ORIGIN so the runtime loader finds libllama.so and libggml*.so
//     next to the built binary (./bin).
//   - -L${SRCDIR}/../../bin so the linker finds libllama.so at link time.
//   - headers are expected in third_party/llama.cpp (or the system include path).
//
// No environment variables are required.

/*
#cgo CFLAGS: -I${SRCDIR}/../../third_party/llama.cpp/include -I${SRCDIR}/../../third_party/llama.cpp/ggml/include
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../bin -lllama
*/
import "C"
