// Package queue admits generation jobs to the audio service. A fixed number
// of jobs run at once; the rest wait in a bounded backlog where short
// high-priority jobs (single texts) are served before CSV jobs.
package queue
