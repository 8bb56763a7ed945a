package factory

import (
	"github.com/google/uuid"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/py-baudin/machines/cmn"
	"github.com/py-baudin/machines/ids"
	"github.com/py-baudin/machines/machine"
	"github.com/py-baudin/machines/target"
	"github.com/py-baudin/machines/task"
)

func mustSourceType(dest string) target.Type {
	typ, err := target.NewType(dest, "", nil, false)
	Expect(err).NotTo(HaveOccurred())
	return typ
}

func sourceMachine() *machine.Machine {
	m, err := machine.New("source", func(ctx *task.Context) (any, error) {
		return "hello", nil
	}).
		Output("out", mustSourceType("greeting")).
		Build()
	Expect(err).NotTo(HaveOccurred())
	return m
}

var _ = Describe("Factory", func() {
	It("runs a queued task to completion and holds until it's done", func() {
		f := New(uuid.NewString())
		tk, err := task.New(sourceMachine(), nil, ids.NoID, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(f.AddTask(tk)).To(Succeed())
		f.Hold()

		Expect(tk.Status).To(Equal(cmn.StatusSuccess))
		Expect(f.Exists(tk.Output)).To(BeTrue())
	})

	It("drops a task that's already queued instead of duplicating it", func() {
		f := New(uuid.NewString())
		tk, err := task.New(sourceMachine(), nil, ids.NoID, nil)
		Expect(err).NotTo(HaveOccurred())

		added := f.queue.put(tk)
		Expect(added).To(BeTrue())
		addedAgain := f.queue.put(tk)
		Expect(addedAgain).To(BeFalse())
		Expect(f.QueueSize()).To(Equal(1))
	})

	It("invokes the completion callback once the queue drains", func() {
		var gotSummary []*task.Task
		f := New(uuid.NewString(), WithCallback(func(tasks []*task.Task) {
			gotSummary = tasks
		}))
		tk, err := task.New(sourceMachine(), nil, ids.NoID, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(f.AddTask(tk)).To(Succeed())
		f.Hold()

		Expect(gotSummary).To(HaveLen(1))
		Expect(gotSummary[0]).To(BeIdenticalTo(tk))
	})
})

var _ = Describe("DryFactory", func() {
	It("queues tasks without ever running them", func() {
		f := NewDry(uuid.NewString())
		tk, err := task.New(sourceMachine(), nil, ids.NoID, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(f.AddTask(tk)).To(Succeed())
		f.Hold()

		Expect(f.Serving()).To(BeFalse())
		Expect(tk.Status).To(Equal(cmn.StatusNew))
		Expect(f.QueueSize()).To(Equal(1))
	})
})
