// Package soma manages CTF problem repositories and turns each problem they
// declare into a sandboxed network service running in a Docker container.
//
// A repository is registered from a git URL or a local directory and copied
// into the data directory (~/.soma, or $SOMA_DATA_DIR). Every problem carries
// a soma.toml manifest; a repository with several problems lists their
// directories in soma-list.toml.
//
// # Quick Start
//
//	env, err := soma.Open(ctx, soma.Home(), soma.WithOutput(os.Stdout))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer env.Close()
//
//	if _, err := env.Add(ctx, "https://github.com/PLUS-POSTECH/simple-bof.git", ""); err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := env.Build(ctx, "simple-bof"); err != nil {
//	    log.Fatal(err)
//	}
//	id, err := env.Run(ctx, "simple-bof", 31337)
//
// # Problem Lifecycle
//
// The state of a problem is read from the runtime on every call, by label:
//
//   - Build: no image to image
//   - Run: image to running container
//   - Stop: running container back to image
//   - Clean: image to no image
//
// Illegal transitions fail with ErrProblemAlreadyRunning, ErrProblemNotRunning,
// ErrRepositoryInUse or ErrImageNotFound.
//
// # Queries
//
// Problems are addressed by bare name ("simple-bof") or by qualified name
// ("repository.problem"). A bare name shared by several repositories is
// rejected as ambiguous.
//
// # Persistence
//
// An Environment holds an exclusive lock on its data directory. Changes to the
// repository index are written by Close, which reports any failure.
package soma
