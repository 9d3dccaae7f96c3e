package service

import (
	"context"
	"fmt"

	"autosolver/internal/common"
	"autosolver/internal/domain/model"
	"autosolver/internal/platform/codeforces"

	"go.uber.org/zap"
)

// solveCodeforces mirrors the LeetCode flow for a random unsolved Codeforces
// problem. A refused submission degrades to sending the code to chat.
func (s *SolveService) solveCodeforces(ctx context.Context, req SolveRequest) (*model.SolveResult, error) {
	if req.Creds.CFHandle == "" {
		return nil, fmt.Errorf("codeforces handle: %w", common.ErrMissingCredentials)
	}
	log := s.log.With(zap.String("platform", string(model.PlatformCodeforces)), zap.String("handle", req.Creds.CFHandle))

	problem, err := s.cf.RandomUnsolved(ctx, req.Creds.CFHandle, s.opts.CFMinRating, s.opts.CFMaxRating)
	if err != nil {
		return nil, fmt.Errorf("pick codeforces problem: %w", err)
	}
	if problem == nil {
		s.notify(ctx, req.Creds, msgCFAllSolved)
		return &model.SolveResult{Status: model.ResultAllSolved, Message: "No unsolved problems in rating band"}, nil
	}
	slug := codeforces.Slug(*problem)
	url := s.cf.ProblemURL(*problem)
	if req.OnProblem != nil {
		req.OnProblem(ctx, problem.Name, slug)
	}

	statement, err := s.cf.Statement(ctx, *problem)
	if err != nil {
		return nil, fmt.Errorf("fetch statement: %w", err)
	}

	s.notify(ctx, req.Creds, msgGenerating(problem.Name))
	code, err := s.gen.GenerateProgram(ctx, req.Creds.LLMKey, statement)
	if err != nil {
		return nil, fmt.Errorf("generate solution: %w", err)
	}

	result := &model.SolveResult{
		Source:  "Codeforces",
		Problem: problem.Name,
		Slug:    slug,
		Code:    code,
		URL:     url,
	}

	session := codeforces.Session{JSessionID: req.Creds.CFJSessionID, CSRFToken: req.Creds.CFCSRFToken}
	if session.JSessionID == "" || session.CSRFToken == "" {
		err = fmt.Errorf("no browser session configured: %w", common.ErrMissingCredentials)
	} else {
		s.notify(ctx, req.Creds, msgSubmitting)
		err = s.cf.Submit(ctx, session, *problem, code)
	}
	if err != nil {
		log.Warn("codeforces submission failed, falling back to manual", zap.String("slug", slug), zap.Error(err))
		s.notify(ctx, req.Creds, msgCFManual(*problem, url, err, code))
		result.Status = model.ResultManualRequired
		result.Message = err.Error()
		return result, nil
	}

	log.Info("codeforces solution submitted", zap.String("slug", slug))
	s.notify(ctx, req.Creds, msgCFSubmitted(*problem, url))
	result.Status = model.ResultSubmitted
	result.Message = "Check your CF status page!"
	return result, nil
}
