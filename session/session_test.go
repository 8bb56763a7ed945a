package session

import (
	"context"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/py-baudin/machines/ids"
	"github.com/py-baudin/machines/machine"
	"github.com/py-baudin/machines/storage"
	"github.com/py-baudin/machines/target"
	"github.com/py-baudin/machines/task"
)

func mustType(dest string) target.Type {
	typ, err := target.NewType(dest, "", nil, false)
	Expect(err).NotTo(HaveOccurred())
	return typ
}

func sourceProgram() *machine.Machine {
	m, err := machine.New("source", func(ctx *task.Context) (any, error) {
		return "hello", nil
	}).
		Output("out", mustType("greeting")).
		Build()
	Expect(err).NotTo(HaveOccurred())
	return m
}

func shoutProgram() *machine.Machine {
	m, err := machine.New("shout", func(ctx *task.Context) (any, error) {
		return ctx.Inputs["in"].(string) + "!", nil
	}).
		Input("in", mustType("greeting")).
		Output("out", mustType("shout")).
		Build()
	Expect(err).NotTo(HaveOccurred())
	return m
}

func buildToolbox() *Toolbox {
	tb := NewToolbox("greetings", "a toy pipeline")
	Expect(tb.AddProgram("source", sourceProgram(), "", nil, "")).To(Succeed())
	Expect(tb.AddProgram("shout", shoutProgram(), "", nil, "")).To(Succeed())
	return tb
}

var _ = Describe("Session", func() {
	It("runs a single named program to completion", func() {
		tb := buildToolbox()
		sess, err := New(tb, map[string]storage.Storage{MainStorage: storage.NewMemory(false)}, "", true)
		Expect(err).NotTo(HaveOccurred())

		ran, err := sess.Run(context.Background(), "source", RunOptions{
			Indices: []ids.Index{ids.MustIndex("a")},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(ran).To(HaveLen(1))
	})

	It("autoruns ancestor programs feeding a requested one", func() {
		tb := buildToolbox()
		sess, err := New(tb, map[string]storage.Storage{MainStorage: storage.NewMemory(false)}, "", true)
		Expect(err).NotTo(HaveOccurred())

		ran, err := sess.Autorun(context.Background(), "shout", RunOptions{
			Indices: []ids.Index{ids.MustIndex("a")},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(ran).ToNot(BeEmpty())

		for _, tk := range ran {
			Expect(tk.Status.Terminal()).To(BeTrue())
		}
	})

	It("lists and summarizes every stored target", func() {
		tb := buildToolbox()
		mem := storage.NewMemory(false)
		sess, err := New(tb, map[string]storage.Storage{MainStorage: mem}, "", true)
		Expect(err).NotTo(HaveOccurred())

		_, err = sess.Run(context.Background(), "source", RunOptions{
			Indices: []ids.Index{ids.MustIndex("a")},
		})
		Expect(err).NotTo(HaveOccurred())

		list, err := sess.List()
		Expect(err).NotTo(HaveOccurred())
		Expect(list).To(HaveLen(1))

		summary, err := sess.Summary()
		Expect(err).NotTo(HaveOccurred())
		Expect(summary[mem.Name()]).To(HaveLen(1))
	})

	It("reports the most recently run tasks via Monitor", func() {
		tb := buildToolbox()
		sess, err := New(tb, map[string]storage.Storage{MainStorage: storage.NewMemory(false)}, "", true)
		Expect(err).NotTo(HaveOccurred())

		_, err = sess.Run(context.Background(), "source", RunOptions{
			Indices: []ids.Index{ids.MustIndex("a")},
		})
		Expect(err).NotTo(HaveOccurred())

		recent := sess.Monitor(0, nil, true)
		Expect(recent).ToNot(BeEmpty())
	})
})
