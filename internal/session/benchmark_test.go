package session

import (
	"fmt"
	"testing"
)

func BenchmarkManager_Save(b *testing.B) {
	for _, n := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("messages_%d", n), func(b *testing.B) {
			mgr := NewManager(b.TempDir())
			sess := mgr.GetOrCreate("bench")
			for i := 0; i < n; i++ {
				sess.AddMessage("user", "benchmark message body")
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				// Save rewrites the whole transcript on every call.
				if err := mgr.Save(sess); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkManager_LoadFromDisk(b *testing.B) {
	for _, n := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("messages_%d", n), func(b *testing.B) {
			dir := b.TempDir()
			mgr := NewManager(dir)
			sess := mgr.GetOrCreate("bench")
			for i := 0; i < n; i++ {
				sess.AddMessage("user", "benchmark message body")
			}
			if err := mgr.Save(sess); err != nil {
				b.Fatal(err)
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				// A fresh manager forces the first access to read the file.
				loaded := NewManager(dir).GetOrCreate("bench")
				if got := len(loaded.Messages); got != n {
					b.Fatalf("expected %d messages, got %d", n, got)
				}
			}
		})
	}
}
